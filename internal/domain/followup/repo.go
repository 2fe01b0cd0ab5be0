package followup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type PatientRepository interface {
	// GetByDocument returns ErrNotFound when no patient has the document number.
	GetByDocument(ctx context.Context, documentNumber string) (*Patient, error)
	Create(ctx context.Context, p *Patient) error
	// UpdateContact persists the enrichable fields: phone and insurance.
	UpdateContact(ctx context.Context, p *Patient) error
}

type FollowUpRepository interface {
	// FindByKey returns ErrNotFound when no visit matches the import key.
	FindByKey(ctx context.Context, patientID uuid.UUID, serviceName string, dateRequest time.Time) (*FollowUp, error)
	Create(ctx context.Context, f *FollowUp) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, dateAppointment *time.Time) error
	// List returns one page in creation order plus the total match count.
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*FollowUp, int, error)
	// Classification
	ListAll(ctx context.Context) ([]*FollowUp, error)
	UpdateClassification(ctx context.Context, id uuid.UUID, category, observation string) error
	ListUnclassifiedCodes(ctx context.Context) ([]CodeGroup, error)
	UpdateCategoryByCode(ctx context.Context, cups, category string) (int, error)
	// Audit
	FindDuplicateKeys(ctx context.Context) ([]DuplicateGroup, error)
	CountAppointmentBeforeRequest(ctx context.Context) (int, error)
}

// Tx is an open transaction. Repositories obtained from it read and write
// inside that transaction only.
type Tx interface {
	Patients() PatientRepository
	FollowUps() FollowUpRepository
}

// TxRunner runs fn in a new transaction, committing when fn returns nil and
// rolling back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Audit collects the read-only data-quality report inside tx.
func Audit(ctx context.Context, tx Tx) (*AuditReport, error) {
	dups, err := tx.FollowUps().FindDuplicateKeys(ctx)
	if err != nil {
		return nil, err
	}
	inverted, err := tx.FollowUps().CountAppointmentBeforeRequest(ctx)
	if err != nil {
		return nil, err
	}
	return &AuditReport{Duplicates: dups, AppointmentBeforeRequest: inverted}, nil
}

func errDuplicateDocument(doc string) error {
	return fmt.Errorf("patient with document %q already exists", doc)
}

func errMissingPatient(id uuid.UUID) error {
	return fmt.Errorf("patient %s does not exist", id)
}
