// Package normalize coerces loosely-typed child/record payloads into
// the canonical model shape. Entities arrive from local storage, JSON
// import, or the server, sometimes in a legacy schema (field aliases,
// pipe-delimited strings, "sim"/"não"-style booleans). Everything is
// converted once, here, at ingestion; downstream code only ever sees
// canonical values.
//
// Normalization is idempotent: a second pass over an already-canonical
// entity reports changed=false. It never fails: unknown tokens pass
// through unchanged.
package normalize

import (
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/WellingtonFilho7/lumine-sync/internal/models"
)

var foldTransform = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases s, strips diacritics and collapses separators to
// underscores: "Em Triagem" -> "em_triagem", "Não" -> "nao".
func Fold(s string) string {
	out, _, err := transform.String(foldTransform, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(strings.TrimSpace(out))
	fields := strings.FieldsFunc(out, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-'
	})
	return strings.Join(fields, "_")
}

var truthy = map[string]bool{"sim": true, "s": true, "yes": true, "y": true, "true": true, "1": true}
var falsy = map[string]bool{"nao": true, "n": true, "no": true, "false": true, "0": true}

// simNao maps boolean-like tokens onto the canonical "sim"/"nao" pair
// used by consent fields. Unknown tokens pass through unchanged.
func simNao(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case bool:
		if t {
			return "sim", true
		}
		return "nao", true
	case float64:
		if t != 0 {
			return "sim", true
		}
		return "nao", true
	case string:
		f := Fold(t)
		if truthy[f] {
			return "sim", f != t
		}
		if falsy[f] {
			return "nao", f != t
		}
		return t, false
	default:
		return "", false
	}
}

// asBool maps boolean-like tokens onto a real bool for fields with
// boolean semantics. Absent and unrecognized values are false.
func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case nil:
		return false, false
	case bool:
		return t, false
	case float64:
		return t != 0, true
	case string:
		f := Fold(t)
		if truthy[f] {
			return true, true
		}
		return false, t != ""
	default:
		return false, false
	}
}

// list parses pipe-delimited strings ("a|b|c") or loose arrays into an
// ordered, deduplicated []string.
func list(v any) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, t != ""
		}
		return dedupe(strings.Split(t, "|"), true)
	case []string:
		return dedupe(t, false)
	case []any:
		parts := make([]string, 0, len(t))
		loose := false
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				loose = true
				continue
			}
			parts = append(parts, s)
		}
		out, ch := dedupe(parts, false)
		return out, ch || loose
	default:
		return nil, true
	}
}

func dedupe(parts []string, fromString bool) ([]string, bool) {
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	changed := fromString
	for _, p := range parts {
		p2 := strings.TrimSpace(p)
		if p2 != p {
			changed = true
		}
		if p2 == "" || seen[p2] {
			changed = true
			continue
		}
		seen[p2] = true
		out = append(out, p2)
	}
	return out, changed
}

// isoDay truncates an ISO timestamp to its calendar date.
func isoDay(v any) (string, bool) {
	s, _ := v.(string)
	s2 := strings.TrimSpace(s)
	if i := strings.Index(s2, "T"); i >= 0 {
		s2 = s2[:i]
	}
	return s2, s2 != s || (v != nil && s == "" && v != "")
}

func str(raw map[string]any, keys ...string) (string, bool) {
	for i, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok {
				return strings.TrimSpace(s), i > 0 || strings.TrimSpace(s) != s
			}
		}
	}
	return "", false
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// Child coerces a raw child object into canonical form. The returned
// flag reports whether normalization altered anything.
func Child(raw map[string]any) (models.Child, bool) {
	var c models.Child
	changed := false
	mark := func(ch bool) {
		if ch {
			changed = true
		}
	}

	var ch bool
	c.ID, ch = str(raw, "id")
	mark(ch)
	c.ChildID, ch = str(raw, "childId")
	mark(ch)
	c.Name, ch = str(raw, "name")
	mark(ch)
	c.GuardianName, ch = str(raw, "guardianName")
	mark(ch)
	c.GuardianTel, ch = str(raw, "guardianTel")
	mark(ch)
	c.Notes, ch = str(raw, "notes")
	mark(ch)

	c.BirthDate, ch = isoDay(raw["birthDate"])
	mark(ch)

	// Legacy schema used "status"; current is "enrollmentStatus".
	status, aliased := str(raw, "enrollmentStatus", "status")
	mark(aliased)
	folded := Fold(status)
	mark(folded != status)
	c.EnrollmentStatus = canonicalStatus(folded, mark)

	c.EnrollmentDate, ch = isoDay(raw["enrollmentDate"])
	mark(ch)
	c.MatriculationDate, ch = isoDay(raw["matriculationDate"])
	mark(ch)
	c.StartDate, ch = isoDay(raw["startDate"])
	mark(ch)

	c.DocumentsReceived, ch = list(raw["documentsReceived"])
	mark(ch)
	c.ParticipationDays, ch = list(raw["participationDays"])
	mark(ch)
	c.ConsentImage, ch = simNao(raw["consentImage"])
	mark(ch)
	c.ConsentData, ch = simNao(raw["consentData"])
	mark(ch)
	c.DocumentsOK, ch = asBool(raw["documentsOk"])
	mark(ch)

	c.EnrollmentHistory, ch = history(raw["enrollmentHistory"])
	mark(ch)

	// The audit trail is never empty: seed a genesis entry. This runs
	// before date backfill so the seeded date can serve as a source.
	if len(c.EnrollmentHistory) == 0 {
		date := first(c.EnrollmentDate, c.MatriculationDate, c.StartDate, time.Now().Format("2006-01-02"))
		action := first(c.EnrollmentStatus, models.StatusPreRegistered)
		c.EnrollmentHistory = []models.HistoryEntry{{Date: date, Action: action, Notes: "registro inicial"}}
		changed = true
	}

	// Backfill derived dates from the best available source.
	if c.EnrollmentDate == "" {
		if d := first(c.MatriculationDate, c.StartDate, historyDate(c.EnrollmentHistory)); d != "" {
			c.EnrollmentDate = d
			changed = true
		}
	}
	if c.MatriculationDate == "" && c.EnrollmentStatus == models.StatusEnrolled {
		if d := first(c.StartDate, c.EnrollmentDate); d != "" {
			c.MatriculationDate = d
			changed = true
		}
	}
	if c.StartDate == "" && c.MatriculationDate != "" {
		c.StartDate = c.MatriculationDate
		changed = true
	}

	return c, changed
}

var statusAlias = map[string]string{
	"pre_registered": models.StatusPreRegistered,
	"in_triage":      models.StatusInTriage,
	"triagem":        models.StatusInTriage,
	"approved":       models.StatusApproved,
	"waitlisted":     models.StatusWaitlisted,
	"enrolled":       models.StatusEnrolled,
	"declined":       models.StatusDeclined,
	"withdrawn":      models.StatusWithdrawn,
	"inactive":       models.StatusInactive,
}

func canonicalStatus(folded string, mark func(bool)) string {
	if mapped, ok := statusAlias[folded]; ok {
		mark(true)
		return mapped
	}
	return folded
}

var attendanceAlias = map[string]string{
	"present": models.AttendancePresent,
	"late":    models.AttendanceLate,
	"absent":  models.AttendanceAbsent,
	"falta":   models.AttendanceAbsent,
}

func history(v any) ([]models.HistoryEntry, bool) {
	if v == nil {
		return nil, false
	}
	if typed, ok := v.([]models.HistoryEntry); ok {
		return typed, false
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, true
	}
	out := make([]models.HistoryEntry, 0, len(arr))
	changed := false
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			changed = true
			continue
		}
		var h models.HistoryEntry
		var tr bool
		h.Date, tr = str(m, "date")
		changed = changed || tr
		h.Action, tr = str(m, "action")
		changed = changed || tr
		h.Notes, tr = str(m, "notes")
		changed = changed || tr
		out = append(out, h)
	}
	return out, changed
}

func historyDate(h []models.HistoryEntry) string {
	if len(h) == 0 {
		return ""
	}
	return h[0].Date
}

// Record coerces a raw daily-record object into canonical form.
func Record(raw map[string]any) (models.DailyRecord, bool) {
	var r models.DailyRecord
	changed := false
	mark := func(ch bool) {
		if ch {
			changed = true
		}
	}

	var ch bool
	r.ID, ch = str(raw, "id")
	mark(ch)
	r.Observations, ch = str(raw, "observations")
	mark(ch)
	r.Activities, ch = str(raw, "activities")
	mark(ch)

	// childInternalId is the local identity; legacy payloads only
	// carried childId. The two are kept equal.
	internal, aliased := str(raw, "childInternalId", "childId")
	mark(aliased)
	r.ChildInternalID = internal
	mirror, _ := str(raw, "childId")
	r.ChildID = internal
	mark(mirror != internal)

	r.Date, ch = isoDay(raw["date"])
	mark(ch)

	att, _ := str(raw, "attendance")
	folded := Fold(att)
	mark(folded != att)
	if mapped, ok := attendanceAlias[folded]; ok {
		folded = mapped
		changed = true
	}
	r.Attendance = folded

	var created string
	created, ch = str(raw, "createdAt")
	mark(ch)
	if created != "" {
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			r.CreatedAt = t
		} else {
			changed = true
		}
	}

	return r, changed
}

// Children normalizes a batch. Non-array input coerces to an empty
// collection and reports changed.
func Children(v any) ([]models.Child, bool) {
	raws, ok := rawSlice(v)
	if !ok {
		return []models.Child{}, true
	}
	out := make([]models.Child, 0, len(raws))
	changed := false
	for _, raw := range raws {
		c, ch := Child(raw)
		out = append(out, c)
		if ch {
			changed = true
		}
	}
	return out, changed
}

// Records normalizes a batch of daily records; same contract as Children.
func Records(v any) ([]models.DailyRecord, bool) {
	raws, ok := rawSlice(v)
	if !ok {
		return []models.DailyRecord{}, true
	}
	out := make([]models.DailyRecord, 0, len(raws))
	changed := false
	for _, raw := range raws {
		r, ch := Record(raw)
		out = append(out, r)
		if ch {
			changed = true
		}
	}
	return out, changed
}

func rawSlice(v any) ([]map[string]any, bool) {
	arr, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(arr))
	for _, e := range arr {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

// AsMap round-trips an entity through JSON into the raw map shape the
// normalizer consumes. Used when merging payload fields over an
// existing entity.
func AsMap(v any) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}
