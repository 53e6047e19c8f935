package normalize

import (
	"reflect"
	"testing"

	"github.com/WellingtonFilho7/lumine-sync/internal/models"
)

func messyChild() map[string]any {
	return map[string]any{
		"id":                "c1",
		"name":              "Maria Clara",
		"status":            "Em Triagem", // legacy alias + unfolded token
		"documentsReceived": "certidao|vacina|certidao| residencia ",
		"participationDays": "seg|qua|sex",
		"consentImage":      "Não",
		"consentData":       true,
		"documentsOk":       "sim",
		"birthDate":         "2019-03-07T00:00:00.000Z",
		"matriculationDate": "2026-01-12",
	}
}

// TestChildIdempotent verifies the central normalizer contract:
// a second pass over an already-canonical child changes nothing.
func TestChildIdempotent(t *testing.T) {
	c1, changed := Child(messyChild())
	if !changed {
		t.Fatal("first pass should report changed=true")
	}
	c2, changed := Child(AsMap(c1))
	if changed {
		t.Fatal("second pass should report changed=false")
	}
	if !reflect.DeepEqual(AsMap(c1), AsMap(c2)) {
		t.Fatalf("second pass altered the entity:\n%v\nvs\n%v", AsMap(c1), AsMap(c2))
	}
}

func TestChildLegacyStatusAlias(t *testing.T) {
	c, changed := Child(map[string]any{"id": "c1", "status": "aprovada"})
	if !changed {
		t.Fatal("alias use should report changed")
	}
	if c.EnrollmentStatus != models.StatusApproved {
		t.Errorf("enrollmentStatus = %q, want %q", c.EnrollmentStatus, models.StatusApproved)
	}
}

func TestChildTokenFolding(t *testing.T) {
	c, _ := Child(map[string]any{"status": "Em Triagem", "consentImage": "Não"})
	if c.EnrollmentStatus != "em_triagem" {
		t.Errorf("status = %q, want em_triagem", c.EnrollmentStatus)
	}
	if c.ConsentImage != "nao" {
		t.Errorf("consentImage = %q, want nao", c.ConsentImage)
	}
}

func TestChildUnknownTokensPassThrough(t *testing.T) {
	c, _ := Child(map[string]any{"enrollmentStatus": "algum_novo_estado", "consentImage": "talvez"})
	if c.EnrollmentStatus != "algum_novo_estado" {
		t.Errorf("unknown status mangled: %q", c.EnrollmentStatus)
	}
	if c.ConsentImage != "talvez" {
		t.Errorf("unknown consent token mangled: %q", c.ConsentImage)
	}
}

func TestChildPipeLists(t *testing.T) {
	c, _ := Child(map[string]any{"documentsReceived": "a|b|a| c |"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(c.DocumentsReceived, want) {
		t.Errorf("documentsReceived = %v, want %v", c.DocumentsReceived, want)
	}
}

func TestChildBoolTokens(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want bool
	}{
		{"sim", true}, {"1", true}, {true, true}, {float64(1), true},
		{"não", false}, {"0", false}, {false, false}, {nil, false},
	} {
		c, _ := Child(map[string]any{"documentsOk": tc.in})
		if c.DocumentsOK != tc.want {
			t.Errorf("documentsOk(%v) = %v, want %v", tc.in, c.DocumentsOK, tc.want)
		}
	}
}

func TestChildHistoryNeverEmpty(t *testing.T) {
	c, changed := Child(map[string]any{"name": "Teste", "enrollmentStatus": "em_triagem"})
	if !changed {
		t.Fatal("seeding the history should report changed")
	}
	if len(c.EnrollmentHistory) == 0 {
		t.Fatal("enrollmentHistory must not be empty after normalization")
	}
	if c.EnrollmentHistory[0].Action != "em_triagem" {
		t.Errorf("genesis action = %q", c.EnrollmentHistory[0].Action)
	}
}

func TestChildDateBackfill(t *testing.T) {
	c, _ := Child(map[string]any{
		"enrollmentStatus":  "matriculada",
		"matriculationDate": "2026-01-12",
	})
	if c.EnrollmentDate != "2026-01-12" {
		t.Errorf("enrollmentDate = %q, want 2026-01-12", c.EnrollmentDate)
	}
	if c.StartDate != "2026-01-12" {
		t.Errorf("startDate = %q, want 2026-01-12", c.StartDate)
	}
}

// Trimming whitespace off a text field counts as a change, like every
// other coercion.
func TestChildTrimReportsChanged(t *testing.T) {
	clean, _ := Child(messyChild())
	raw := AsMap(clean)
	raw["name"] = "  Maria Clara "
	c, changed := Child(raw)
	if c.Name != "Maria Clara" {
		t.Errorf("name = %q, want trimmed", c.Name)
	}
	if !changed {
		t.Error("trimmed name must report changed")
	}
}

func TestRecordTrimReportsChanged(t *testing.T) {
	r1, _ := Record(map[string]any{
		"id": "r1", "childInternalId": "c1", "date": "2026-02-12",
		"attendance": "presente", "observations": "tranquilo",
	})
	raw := AsMap(r1)
	raw["observations"] = " tranquilo "
	r2, changed := Record(raw)
	if r2.Observations != "tranquilo" {
		t.Errorf("observations = %q, want trimmed", r2.Observations)
	}
	if !changed {
		t.Error("trimmed observations must report changed")
	}
}

func TestRecordChildIDMirror(t *testing.T) {
	r, _ := Record(map[string]any{"childId": "c9", "date": "2026-02-12T10:30:00Z"})
	if r.ChildInternalID != "c9" || r.ChildID != "c9" {
		t.Errorf("ids = (%q, %q), want both c9", r.ChildInternalID, r.ChildID)
	}
	if r.Date != "2026-02-12" {
		t.Errorf("date = %q, want calendar day", r.Date)
	}
}

func TestRecordAttendanceAliases(t *testing.T) {
	for in, want := range map[string]string{
		"present":  models.AttendancePresent,
		"Presente": models.AttendancePresent,
		"late":     models.AttendanceLate,
		"absent":   models.AttendanceAbsent,
		"falta":    models.AttendanceAbsent,
	} {
		r, _ := Record(map[string]any{"attendance": in})
		if r.Attendance != want {
			t.Errorf("attendance(%q) = %q, want %q", in, r.Attendance, want)
		}
	}
}

func TestRecordIdempotent(t *testing.T) {
	r1, _ := Record(map[string]any{
		"id": "r1", "childInternalId": "c1", "date": "2026-02-12", "attendance": "presente",
	})
	r2, changed := Record(AsMap(r1))
	if changed {
		t.Fatal("second pass should report changed=false")
	}
	if !reflect.DeepEqual(AsMap(r1), AsMap(r2)) {
		t.Fatal("second pass altered the record")
	}
}

func TestBatchNonArrayCoercesToEmpty(t *testing.T) {
	children, changed := Children("not-an-array")
	if !changed {
		t.Error("non-array input must report changed")
	}
	if children == nil || len(children) != 0 {
		t.Errorf("want empty collection, got %v", children)
	}

	recs, changed := Records(map[string]any{})
	if !changed || len(recs) != 0 {
		t.Errorf("want empty records + changed, got %v (%v)", recs, changed)
	}
}

func TestBatchReportsAnyElementChanged(t *testing.T) {
	clean, _ := Child(map[string]any{"id": "c1", "name": "A", "enrollmentStatus": "aprovada"})
	_, changed := Children([]any{AsMap(clean), map[string]any{"id": "c2", "status": "aprovada"}})
	if !changed {
		t.Error("batch with one legacy element must report changed")
	}
	_, changed = Children([]any{AsMap(clean)})
	if changed {
		t.Error("batch of canonical elements must not report changed")
	}
}

func TestFold(t *testing.T) {
	for in, want := range map[string]string{
		"Não":          "nao",
		"Em Triagem":   "em_triagem",
		"LISTA-Espera": "lista_espera",
		"já_canonico":  "ja_canonico",
	} {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}
