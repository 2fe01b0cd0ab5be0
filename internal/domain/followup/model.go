package followup

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a follow-up visit.
type Status string

const (
	StatusPendiente Status = "PENDIENTE"
	StatusEnGestion Status = "EN_GESTION"
	StatusAgendado  Status = "AGENDADO"
	StatusRealizado Status = "REALIZADO"
	StatusCancelado Status = "CANCELADO"
)

var validStatuses = map[Status]bool{
	StatusPendiente: true, StatusEnGestion: true, StatusAgendado: true,
	StatusRealizado: true, StatusCancelado: true,
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	return validStatuses[s]
}

const (
	PatientActive = "active"

	// PendingCategory is the placeholder some sources write before a visit
	// has been classified.
	PendingCategory = "PENDIENTE"

	MaxCupsLen        = 20
	MaxServiceNameLen = 255
)

// Patient maps to the patient table. DocumentNumber is the natural key used
// to deduplicate across imports.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	DocumentNumber string     `db:"document_number" json:"document_number"`
	DocumentType   string     `db:"document_type" json:"document_type"`
	FirstName      string     `db:"first_name" json:"first_name"`
	LastName       string     `db:"last_name" json:"last_name"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Gender         string     `db:"gender" json:"gender"`
	Phone          string     `db:"phone" json:"phone"`
	Email          string     `db:"email" json:"email"`
	City           string     `db:"city" json:"city"`
	Department     string     `db:"department" json:"department"`
	Insurance      string     `db:"insurance" json:"insurance"`
	Status         string     `db:"status" json:"status"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// FollowUp maps to the follow_up table: one requested service for a patient.
// (PatientID, ServiceName, DateRequest) identifies a visit during import.
type FollowUp struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	DateRequest     time.Time  `db:"date_request" json:"date_request"`
	DateAppointment *time.Time `db:"date_appointment" json:"date_appointment,omitempty"`
	Status          Status     `db:"status" json:"status"`
	Cups            string     `db:"cups" json:"cups"`
	ServiceName     string     `db:"service_name" json:"service_name"`
	EPS             string     `db:"eps" json:"eps"`
	Category        *string    `db:"category" json:"category,omitempty"`
	Observation     string     `db:"observation" json:"observation"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CategoryValue returns the stored category or "" when unset.
func (f *FollowUp) CategoryValue() string {
	if f.Category == nil {
		return ""
	}
	return *f.Category
}

// ListFilter narrows a follow-up listing. Zero fields match everything;
// Category PendingCategory matches every unclassified visit.
type ListFilter struct {
	Status         Status
	Category       string
	DocumentNumber string
}

// CodeGroup is a set of unclassified follow-ups sharing one CUPS code.
type CodeGroup struct {
	Cups        string `json:"cups"`
	ServiceName string `json:"service_name"`
	Count       int    `json:"count"`
}

// DuplicateGroup reports follow-ups that collide on the import key.
type DuplicateGroup struct {
	PatientID   uuid.UUID `json:"patient_id"`
	ServiceName string    `json:"service_name"`
	DateRequest time.Time `json:"date_request"`
	Count       int       `json:"count"`
}

// AuditReport summarizes data-quality findings over the stored follow-ups.
type AuditReport struct {
	Duplicates               []DuplicateGroup `json:"duplicates"`
	AppointmentBeforeRequest int              `json:"appointment_before_request"`
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
