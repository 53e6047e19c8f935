package models

import "time"

// Enrollment workflow statuses (canonical tokens, pt-BR):
// "pre_matricula", "em_triagem", "aprovada", "lista_espera",
// "matriculada", "recusada", "desistiu", "inativa"
const (
	StatusPreRegistered = "pre_matricula"
	StatusInTriage      = "em_triagem"
	StatusApproved      = "aprovada"
	StatusWaitlisted    = "lista_espera"
	StatusEnrolled      = "matriculada"
	StatusDeclined      = "recusada"
	StatusWithdrawn     = "desistiu"
	StatusInactive      = "inativa"
)

// Attendance: "presente" | "atrasado" | "ausente"
const (
	AttendancePresent = "presente"
	AttendanceLate    = "atrasado"
	AttendanceAbsent  = "ausente"
)

// HistoryEntry is one line of a child's enrollment audit trail.
// The history is append-only; sync never rewrites it.
type HistoryEntry struct {
	Date   string `json:"date"`
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

type Child struct {
	// ID is the client-generated internal id, stable once created.
	// ChildID is assigned by the server and arrives after the first
	// successful sync; it may be empty for never-synced children.
	ID      string `json:"id" gorm:"primaryKey"`
	ChildID string `json:"childId"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Name         string `json:"name"`
	BirthDate    string `json:"birthDate"` // ISO date, "2006-01-02"
	GuardianName string `json:"guardianName"`
	GuardianTel  string `json:"guardianTel"`

	EnrollmentStatus  string         `json:"enrollmentStatus"`
	EnrollmentHistory []HistoryEntry `json:"enrollmentHistory" gorm:"serializer:json"`

	// Dates backfilled by normalization when missing.
	EnrollmentDate    string `json:"enrollmentDate"`
	MatriculationDate string `json:"matriculationDate"`
	StartDate         string `json:"startDate"`

	DocumentsReceived []string `json:"documentsReceived" gorm:"serializer:json"` // e.g. certidao|vacina|residencia
	ParticipationDays []string `json:"participationDays" gorm:"serializer:json"` // seg..sex
	ConsentImage      string   `json:"consentImage"` // "sim" | "nao"
	ConsentData       string   `json:"consentData"`  // "sim" | "nao"
	DocumentsOK       bool     `json:"documentsOk"`

	Notes string `json:"notes"`
}

// DailyRecord is one attendance/observation event. At most one record
// exists per (ChildInternalID, Date) pair.
type DailyRecord struct {
	ID string `json:"id" gorm:"primaryKey"`

	// ChildInternalID is the only identity that matters locally.
	// ChildID mirrors the owning child's server id for payload
	// compatibility and is kept equal to it.
	ChildInternalID string `json:"childInternalId" gorm:"index:idx_rec_child_date,unique"`
	ChildID         string `json:"childId"`

	Date       string `json:"date" gorm:"index:idx_rec_child_date,unique"` // ISO day, "2006-01-02"
	Attendance string `json:"attendance"`

	Observations string `json:"observations"`
	Activities   string `json:"activities"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}
