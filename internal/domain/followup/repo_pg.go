package followup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oncofollow/oncofollow/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Transactions ===========

type txRunnerPG struct{ pool *pgxpool.Pool }

// NewTxRunnerPG returns a TxRunner backed by pool. Every InTx call opens its
// own database transaction.
func NewTxRunnerPG(pool *pgxpool.Pool) TxRunner {
	return &txRunnerPG{pool: pool}
}

func (r *txRunnerPG) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txPG{q: tx})
	})
}

type txPG struct{ q queryable }

func (t *txPG) Patients() PatientRepository   { return &patientRepoPG{q: t.q} }
func (t *txPG) FollowUps() FollowUpRepository { return &followUpRepoPG{q: t.q} }

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// =========== Patient Repository ===========

type patientRepoPG struct{ q queryable }

const patientCols = `id, document_number, document_type, first_name, last_name, birth_date,
	gender, phone, email, city, department, insurance, status, created_at, updated_at`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.DocumentNumber, &p.DocumentType, &p.FirstName, &p.LastName, &p.BirthDate,
		&p.Gender, &p.Phone, &p.Email, &p.City, &p.Department, &p.Insurance, &p.Status,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *patientRepoPG) GetByDocument(ctx context.Context, documentNumber string) (*Patient, error) {
	return r.scanPatient(r.q.QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE document_number = $1`, documentNumber))
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = PatientActive
	}
	return r.q.QueryRow(ctx, `
		INSERT INTO patient (id, document_number, document_type, first_name, last_name, birth_date,
			gender, phone, email, city, department, insurance, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		p.ID, p.DocumentNumber, p.DocumentType, p.FirstName, p.LastName, p.BirthDate,
		p.Gender, p.Phone, p.Email, p.City, p.Department, p.Insurance, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
}

func (r *patientRepoPG) UpdateContact(ctx context.Context, p *Patient) error {
	_, err := r.q.Exec(ctx, `
		UPDATE patient SET phone=$2, insurance=$3, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Phone, p.Insurance)
	return err
}

// =========== Follow-up Repository ===========

type followUpRepoPG struct{ q queryable }

const followUpCols = `id, patient_id, date_request, date_appointment, status, cups,
	service_name, eps, category, observation, created_at, updated_at`

// unclassified matches rows the classifier has not labelled yet. The
// placeholder is compared case-insensitively, as the classifier does.
const unclassified = `(category IS NULL OR TRIM(category) = '' OR UPPER(TRIM(category)) = 'PENDIENTE')`

func (r *followUpRepoPG) scanFollowUp(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	var status string
	err := row.Scan(&f.ID, &f.PatientID, &f.DateRequest, &f.DateAppointment, &status, &f.Cups,
		&f.ServiceName, &f.EPS, &f.Category, &f.Observation, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	f.Status = Status(status)
	return &f, nil
}

func (r *followUpRepoPG) FindByKey(ctx context.Context, patientID uuid.UUID, serviceName string, dateRequest time.Time) (*FollowUp, error) {
	return r.scanFollowUp(r.q.QueryRow(ctx, `
		SELECT `+followUpCols+` FROM follow_up
		WHERE patient_id = $1 AND service_name = $2 AND date_request = $3
		ORDER BY created_at LIMIT 1`,
		patientID, serviceName, DateOnly(dateRequest)))
}

func (r *followUpRepoPG) Create(ctx context.Context, f *FollowUp) error {
	f.ID = uuid.New()
	if f.Status == "" {
		f.Status = StatusPendiente
	}
	f.DateRequest = DateOnly(f.DateRequest)
	return r.q.QueryRow(ctx, `
		INSERT INTO follow_up (id, patient_id, date_request, date_appointment, status, cups,
			service_name, eps, category, observation)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		f.ID, f.PatientID, f.DateRequest, f.DateAppointment, string(f.Status), f.Cups,
		f.ServiceName, f.EPS, f.Category, f.Observation,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *followUpRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, dateAppointment *time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE follow_up SET status=$2, date_appointment=$3, updated_at=NOW()
		WHERE id = $1`,
		id, string(status), dateAppointment)
	return err
}

func (r *followUpRepoPG) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*FollowUp, int, error) {
	where := []string{"TRUE"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(string(filter.Status)))
	}
	switch {
	case strings.EqualFold(strings.TrimSpace(filter.Category), PendingCategory):
		where = append(where, unclassified)
	case filter.Category != "":
		where = append(where, "category = "+arg(filter.Category))
	}
	if filter.DocumentNumber != "" {
		where = append(where, "patient_id IN (SELECT id FROM patient WHERE document_number = "+arg(filter.DocumentNumber)+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM follow_up WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + followUpCols + ` FROM follow_up WHERE ` + cond +
		` ORDER BY created_at, id LIMIT ` + arg(limit) + ` OFFSET ` + arg(offset)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*FollowUp
	for rows.Next() {
		f, err := r.scanFollowUp(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, rows.Err()
}

func (r *followUpRepoPG) ListAll(ctx context.Context) ([]*FollowUp, error) {
	rows, err := r.q.Query(ctx, `SELECT `+followUpCols+` FROM follow_up ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*FollowUp
	for rows.Next() {
		f, err := r.scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}

func (r *followUpRepoPG) UpdateClassification(ctx context.Context, id uuid.UUID, category, observation string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE follow_up SET category=$2, observation=$3, updated_at=NOW()
		WHERE id = $1`,
		id, category, observation)
	return err
}

func (r *followUpRepoPG) ListUnclassifiedCodes(ctx context.Context) ([]CodeGroup, error) {
	rows, err := r.q.Query(ctx, `
		SELECT cups, mode() WITHIN GROUP (ORDER BY service_name), COUNT(*)
		FROM follow_up
		WHERE cups <> '' AND `+unclassified+`
		GROUP BY cups
		ORDER BY cups`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []CodeGroup
	for rows.Next() {
		var g CodeGroup
		if err := rows.Scan(&g.Cups, &g.ServiceName, &g.Count); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *followUpRepoPG) UpdateCategoryByCode(ctx context.Context, cups, category string) (int, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE follow_up SET category=$2, updated_at=NOW()
		WHERE cups = $1 AND `+unclassified,
		cups, category)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *followUpRepoPG) FindDuplicateKeys(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := r.q.Query(ctx, `
		SELECT patient_id, service_name, date_request, COUNT(*)
		FROM follow_up
		GROUP BY patient_id, service_name, date_request
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC, patient_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []DuplicateGroup
	for rows.Next() {
		var g DuplicateGroup
		if err := rows.Scan(&g.PatientID, &g.ServiceName, &g.DateRequest, &g.Count); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *followUpRepoPG) CountAppointmentBeforeRequest(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM follow_up
		WHERE date_appointment IS NOT NULL AND date_appointment < date_request`).Scan(&n)
	return n, err
}
