package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/oncofollow/oncofollow/internal/domain/followup"
)

const (
	defaultDocumentType = "CC"
	maxRowErrors        = 100
)

// Summary reports the outcome of one import.
type Summary struct {
	PatientsCreated  int        `json:"patientsCreated"`
	PatientsUpdated  int        `json:"patientsUpdated"`
	FollowUpsCreated int        `json:"followUpsCreated"`
	FollowUpsUpdated int        `json:"followUpsUpdated"`
	Errors           int        `json:"errors"`
	Skipped          int        `json:"skipped"`
	RowsRead         int        `json:"rowsRead"`
	RowErrors        []RowError `json:"rowErrors,omitempty"`
	Classified       int        `json:"classified"`
	ClassifyError    string     `json:"classifyError,omitempty"`
}

// RowError records why a source line was rolled back.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (s *Summary) addError(line int, err error) {
	s.Errors++
	if len(s.RowErrors) < maxRowErrors {
		s.RowErrors = append(s.RowErrors, RowError{Line: line, Message: err.Error()})
	}
}

// RowSource yields rows until io.EOF. *Reader implements it.
type RowSource interface {
	Next() (Row, error)
}

// Writer persists source rows, one transaction per row.
type Writer struct {
	store  followup.TxRunner
	logger zerolog.Logger
	now    func() time.Time
}

func NewWriter(store followup.TxRunner, logger zerolog.Logger) *Writer {
	return &Writer{store: store, logger: logger, now: time.Now}
}

// WriteAll consumes src and writes every row. A failing row is rolled back
// and counted; only a cancelled context or a broken source stops the loop.
func (w *Writer) WriteAll(ctx context.Context, src RowSource) (*Summary, error) {
	sum := &Summary{}
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("read row: %w", err)
		}
		sum.RowsRead++
		w.WriteRow(ctx, row, sum)
	}
}

// WriteRow writes one row and records its outcome in sum.
func (w *Writer) WriteRow(ctx context.Context, row Row, sum *Summary) {
	out, err := w.writeRow(ctx, row)
	if err != nil {
		w.logger.Warn().Err(err).Int("line", row.Line).Msg("import row rolled back")
		sum.addError(row.Line, err)
		return
	}
	switch {
	case out.skipped:
		sum.Skipped++
		return
	case out.patientCreated:
		sum.PatientsCreated++
	case out.patientUpdated:
		sum.PatientsUpdated++
	}
	if out.followUpCreated {
		sum.FollowUpsCreated++
	}
	if out.followUpUpdated {
		sum.FollowUpsUpdated++
	}
}

type rowOutcome struct {
	skipped         bool
	patientCreated  bool
	patientUpdated  bool
	followUpCreated bool
	followUpUpdated bool
}

func (w *Writer) writeRow(ctx context.Context, row Row) (out rowOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = rowOutcome{}, fmt.Errorf("panic: %v", r)
		}
	}()

	rec, ok := buildRecord(row, w.now())
	if !ok {
		return rowOutcome{skipped: true}, nil
	}

	var res rowOutcome
	err = w.store.InTx(ctx, func(tx followup.Tx) error {
		res = rowOutcome{}
		return persist(ctx, tx, rec, &res)
	})
	if err != nil {
		return rowOutcome{}, err
	}
	return res, nil
}

// record is one row after resolution and cleaning, before persistence.
type record struct {
	patient followup.Patient
	visit   followup.FollowUp
}

// buildRecord resolves and cleans every field of row. It returns false when
// the row has no usable document number.
func buildRecord(row Row, now time.Time) (record, bool) {
	doc := cleanID(row.Resolve(FieldDoc))
	if doc == "" || isGarbageID(doc) {
		return record{}, false
	}

	docType := cleanText(row.Resolve(FieldTipoDoc))
	if docType == "" {
		docType = defaultDocumentType
	}
	birth := parseDate(row.Resolve(FieldFechaNac))
	if birth == nil {
		birth = calculateBirthDate(row.Resolve(FieldEdad), now)
	} else {
		d := followup.DateOnly(*birth)
		birth = &d
	}

	p := followup.Patient{
		DocumentNumber: doc,
		DocumentType:   docType,
		FirstName:      joinNames(row.Resolve(FieldNom1), row.Resolve(FieldNom2)),
		LastName:       joinNames(row.Resolve(FieldApe1), row.Resolve(FieldApe2)),
		BirthDate:      birth,
		Gender:         cleanText(row.Resolve(FieldGenero)),
		Phone:          cleanPhone(row.Resolve(FieldTel)),
		Email:          cleanEmail(row.Resolve(FieldEmail)),
		City:           cleanText(row.Resolve(FieldCiudad)),
		Department:     cleanText(row.Resolve(FieldDepto)),
		Insurance:      cleanText(row.Resolve(FieldEPS)),
		Status:         followup.PatientActive,
	}

	dateRequest := followup.DateOnly(now)
	if d := parseDate(row.Resolve(FieldFechaAten)); d != nil {
		dateRequest = followup.DateOnly(*d)
	}
	var appointment *time.Time
	if d := parseDate(row.Resolve(FieldFechaCita)); d != nil {
		day := followup.DateOnly(*d)
		appointment = &day
	}

	status := InferStatus(StatusSignals{
		AppointmentState: row.Resolve(FieldEstadoCita),
		NoteType:         row.Resolve(FieldTipoNota),
		NoteDone:         row.Resolve(FieldNotaRealizada),
		HasAppointment:   appointment != nil,
	})

	v := followup.FollowUp{
		DateRequest:     dateRequest,
		DateAppointment: ResolveAppointment(status, appointment, dateRequest),
		Status:          status,
		Cups:            truncate(cleanText(row.Resolve(FieldCups)), followup.MaxCupsLen),
		ServiceName:     truncate(cleanText(row.Resolve(FieldServicio)), followup.MaxServiceNameLen),
		EPS:             p.Insurance,
		Observation:     buildRowObservation(row),
	}
	return record{patient: p, visit: v}, true
}

func buildRowObservation(row Row) string {
	barrera := cleanText(row.Resolve(FieldBarrera))
	if barrera == "NO" {
		barrera = ""
	}
	return followup.BuildObservation(cleanText(row.Resolve(FieldObs)),
		followup.Tag{Key: followup.TagBarrera, Value: barrera},
		followup.Tag{Key: followup.TagTipo, Value: cleanText(row.Resolve(FieldTipoCaso))},
		followup.Tag{Key: followup.TagResp, Value: cleanText(row.Resolve(FieldResponsable))},
	)
}

func joinNames(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = cleanText(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// persist resolves the patient and the visit of rec inside tx.
func persist(ctx context.Context, tx followup.Tx, rec record, out *rowOutcome) error {
	patient, err := tx.Patients().GetByDocument(ctx, rec.patient.DocumentNumber)
	switch {
	case errors.Is(err, followup.ErrNotFound):
		p := rec.patient
		patient = &p
		if err := tx.Patients().Create(ctx, patient); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		out.patientCreated = true
	case err != nil:
		return fmt.Errorf("find patient: %w", err)
	default:
		if enrichPatient(patient, rec.patient) {
			if err := tx.Patients().UpdateContact(ctx, patient); err != nil {
				return fmt.Errorf("update patient: %w", err)
			}
			out.patientUpdated = true
		}
	}

	v := rec.visit
	existing, err := tx.FollowUps().FindByKey(ctx, patient.ID, v.ServiceName, v.DateRequest)
	switch {
	case errors.Is(err, followup.ErrNotFound):
		if v.Cups == "" && v.ServiceName == "" && v.Status != followup.StatusRealizado {
			return nil
		}
		v.PatientID = patient.ID
		if err := tx.FollowUps().Create(ctx, &v); err != nil {
			return fmt.Errorf("create follow-up: %w", err)
		}
		out.followUpCreated = true
	case err != nil:
		return fmt.Errorf("find follow-up: %w", err)
	case existing.Status != followup.StatusRealizado && v.Status == followup.StatusRealizado:
		if err := tx.FollowUps().UpdateStatus(ctx, existing.ID, v.Status, v.DateAppointment); err != nil {
			return fmt.Errorf("update follow-up: %w", err)
		}
		out.followUpUpdated = true
	}
	return nil
}

// enrichPatient copies better contact data from in into cur. Existing values
// are never replaced by empty ones.
func enrichPatient(cur *followup.Patient, in followup.Patient) bool {
	changed := false
	if len(in.Phone) > 5 && in.Phone != cur.Phone {
		cur.Phone = in.Phone
		changed = true
	}
	if len(strings.TrimSpace(cur.Insurance)) < 3 && in.Insurance != "" && in.Insurance != cur.Insurance {
		cur.Insurance = in.Insurance
		changed = true
	}
	return changed
}
