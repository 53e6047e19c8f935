// Package records implements the one-record-per-child-per-day merge
// rule for daily attendance records.
package records

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WellingtonFilho7/lumine-sync/internal/models"
	"github.com/WellingtonFilho7/lumine-sync/internal/normalize"
)

// Result is the outcome of an Upsert. Existed tells the caller whether
// the payload landed on an existing record (update) or created a new
// one (insert); mutation hooks use it to choose between a bulk sync
// and a single-entity push.
type Result struct {
	Record  models.DailyRecord
	Next    []models.DailyRecord
	Existed bool
}

// Upsert merges a record-shaped payload into the collection. The
// composite key is (resolved internal child id, calendar date): at most
// one record may exist per key. A matching record is updated in place
// (position, ID and CreatedAt preserved); otherwise a new record is
// appended, stamped with now. Pure function; the input slice is not
// modified.
func Upsert(current []models.DailyRecord, payload map[string]any, now time.Time) Result {
	childKey := pick(payload, "childInternalId", "childId")
	dateKey := dayOf(pick(payload, "date"))

	for i, existing := range current {
		if existing.ChildInternalID != childKey || existing.Date != dateKey {
			continue
		}
		// Shallow-merge payload fields over the existing record.
		merged := normalize.AsMap(existing)
		for k, v := range payload {
			merged[k] = v
		}
		merged["id"] = existing.ID
		merged["createdAt"] = existing.CreatedAt.Format(time.RFC3339)
		rec, _ := normalize.Record(merged)
		rec.CreatedAt = existing.CreatedAt

		next := make([]models.DailyRecord, len(current))
		copy(next, current)
		next[i] = rec
		return Result{Record: rec, Next: next, Existed: true}
	}

	rec, _ := normalize.Record(payload)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.ChildInternalID = childKey
	rec.ChildID = childKey
	rec.Date = dateKey
	rec.CreatedAt = now

	next := make([]models.DailyRecord, len(current), len(current)+1)
	copy(next, current)
	next = append(next, rec)
	return Result{Record: rec, Next: next, Existed: false}
}

func pick(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := payload[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func dayOf(s string) string {
	if i := strings.Index(s, "T"); i >= 0 {
		return s[:i]
	}
	return s
}
