package followup

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process TxRunner. Transactions are serialized and
// write straight to the committed state, recording an undo step per change;
// a failed or panicking fn replays them in reverse. A transaction costs only
// the records it touches. It backs dry-run imports and tests.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type visitKey struct {
	patient uuid.UUID
	service string
	day     time.Time
}

type memState struct {
	patients      map[uuid.UUID]Patient
	byDocument    map[string]uuid.UUID
	followUps     map[uuid.UUID]FollowUp
	followUpOrder []uuid.UUID
	// byKey holds the first follow-up created for each import key.
	byKey map[visitKey]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			patients:   make(map[uuid.UUID]Patient),
			byDocument: make(map[string]uuid.UUID),
			followUps:  make(map[uuid.UUID]FollowUp),
			byKey:      make(map[visitKey]uuid.UUID),
		},
		now: time.Now,
	}
}

func (m *MemoryStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{state: m.state, now: m.now}
	committed := false
	defer func() {
		if !committed {
			tx.rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

// Patients returns a copy of every committed patient ordered by document number.
func (m *MemoryStore) Patients() []Patient {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Patient, 0, len(m.state.patients))
	for _, p := range m.state.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DocumentNumber < out[j].DocumentNumber })
	return out
}

// FollowUps returns a copy of every committed follow-up in creation order.
func (m *MemoryStore) FollowUps() []FollowUp {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]FollowUp, 0, len(m.state.followUpOrder))
	for _, id := range m.state.followUpOrder {
		out = append(out, m.state.followUps[id])
	}
	return out
}

type memTx struct {
	state *memState
	now   func() time.Time
	undo  []func()
}

func (t *memTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

// saveFollowUp records the current value of id for rollback.
func (t *memTx) saveFollowUp(id uuid.UUID) {
	old := t.state.followUps[id]
	t.onRollback(func() { t.state.followUps[id] = old })
}

func (t *memTx) Patients() PatientRepository   { return (*memPatients)(t) }
func (t *memTx) FollowUps() FollowUpRepository { return (*memFollowUps)(t) }

// =========== Patients ===========

type memPatients memTx

func (r *memPatients) GetByDocument(_ context.Context, documentNumber string) (*Patient, error) {
	id, ok := r.state.byDocument[documentNumber]
	if !ok {
		return nil, ErrNotFound
	}
	p := r.state.patients[id]
	return &p, nil
}

func (r *memPatients) Create(_ context.Context, p *Patient) error {
	if _, exists := r.state.byDocument[p.DocumentNumber]; exists {
		return errDuplicateDocument(p.DocumentNumber)
	}
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = PatientActive
	}
	p.CreatedAt = r.now()
	p.UpdatedAt = p.CreatedAt
	r.state.patients[p.ID] = *p
	r.state.byDocument[p.DocumentNumber] = p.ID
	id, doc := p.ID, p.DocumentNumber
	(*memTx)(r).onRollback(func() {
		delete(r.state.patients, id)
		delete(r.state.byDocument, doc)
	})
	return nil
}

func (r *memPatients) UpdateContact(_ context.Context, p *Patient) error {
	cur, ok := r.state.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	old := cur
	(*memTx)(r).onRollback(func() { r.state.patients[old.ID] = old })
	cur.Phone = p.Phone
	cur.Insurance = p.Insurance
	cur.UpdatedAt = r.now()
	r.state.patients[p.ID] = cur
	return nil
}

// =========== Follow-ups ===========

type memFollowUps memTx

func (r *memFollowUps) FindByKey(_ context.Context, patientID uuid.UUID, serviceName string, dateRequest time.Time) (*FollowUp, error) {
	id, ok := r.state.byKey[visitKey{patientID, serviceName, DateOnly(dateRequest)}]
	if !ok {
		return nil, ErrNotFound
	}
	f := r.state.followUps[id]
	return &f, nil
}

func (r *memFollowUps) Create(_ context.Context, f *FollowUp) error {
	if _, ok := r.state.patients[f.PatientID]; !ok {
		return errMissingPatient(f.PatientID)
	}
	f.ID = uuid.New()
	if f.Status == "" {
		f.Status = StatusPendiente
	}
	f.DateRequest = DateOnly(f.DateRequest)
	f.CreatedAt = r.now()
	f.UpdatedAt = f.CreatedAt
	r.state.followUps[f.ID] = *f
	r.state.followUpOrder = append(r.state.followUpOrder, f.ID)
	key := visitKey{f.PatientID, f.ServiceName, f.DateRequest}
	_, indexed := r.state.byKey[key]
	if !indexed {
		r.state.byKey[key] = f.ID
	}

	id, n := f.ID, len(r.state.followUpOrder)-1
	(*memTx)(r).onRollback(func() {
		delete(r.state.followUps, id)
		r.state.followUpOrder = r.state.followUpOrder[:n]
		if !indexed {
			delete(r.state.byKey, key)
		}
	})
	return nil
}

func (r *memFollowUps) UpdateStatus(_ context.Context, id uuid.UUID, status Status, dateAppointment *time.Time) error {
	f, ok := r.state.followUps[id]
	if !ok {
		return ErrNotFound
	}
	(*memTx)(r).saveFollowUp(id)
	f.Status = status
	f.DateAppointment = dateAppointment
	f.UpdatedAt = r.now()
	r.state.followUps[id] = f
	return nil
}

func (r *memFollowUps) ListAll(_ context.Context) ([]*FollowUp, error) {
	items := make([]*FollowUp, 0, len(r.state.followUpOrder))
	for _, id := range r.state.followUpOrder {
		f := r.state.followUps[id]
		items = append(items, &f)
	}
	return items, nil
}

func (r *memFollowUps) List(_ context.Context, filter ListFilter, limit, offset int) ([]*FollowUp, int, error) {
	var patientID uuid.UUID
	if filter.DocumentNumber != "" {
		id, ok := r.state.byDocument[filter.DocumentNumber]
		if !ok {
			return nil, 0, nil
		}
		patientID = id
	}

	pending := strings.EqualFold(strings.TrimSpace(filter.Category), PendingCategory)
	var matched []*FollowUp
	for _, id := range r.state.followUpOrder {
		f := r.state.followUps[id]
		switch {
		case filter.Status != "" && f.Status != filter.Status:
			continue
		case pending && !isUnclassified(f):
			continue
		case filter.Category != "" && !pending && f.CategoryValue() != filter.Category:
			continue
		case filter.DocumentNumber != "" && f.PatientID != patientID:
			continue
		}
		matched = append(matched, &f)
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memFollowUps) UpdateClassification(_ context.Context, id uuid.UUID, category, observation string) error {
	f, ok := r.state.followUps[id]
	if !ok {
		return ErrNotFound
	}
	(*memTx)(r).saveFollowUp(id)
	f.Category = &category
	f.Observation = observation
	f.UpdatedAt = r.now()
	r.state.followUps[id] = f
	return nil
}

func isUnclassified(f FollowUp) bool {
	c := strings.TrimSpace(f.CategoryValue())
	return c == "" || strings.EqualFold(c, PendingCategory)
}

func (r *memFollowUps) ListUnclassifiedCodes(_ context.Context) ([]CodeGroup, error) {
	counts := make(map[string]map[string]int)
	for _, id := range r.state.followUpOrder {
		f := r.state.followUps[id]
		if f.Cups == "" || !isUnclassified(f) {
			continue
		}
		if counts[f.Cups] == nil {
			counts[f.Cups] = make(map[string]int)
		}
		counts[f.Cups][f.ServiceName]++
	}

	groups := make([]CodeGroup, 0, len(counts))
	for cups, names := range counts {
		g := CodeGroup{Cups: cups}
		best := -1
		for name, n := range names {
			g.Count += n
			// Most frequent name; ties go to the lexically smallest, as mode() does.
			if n > best || (n == best && name < g.ServiceName) {
				best = n
				g.ServiceName = name
			}
		}
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Cups < groups[j].Cups })
	return groups, nil
}

func (r *memFollowUps) UpdateCategoryByCode(_ context.Context, cups, category string) (int, error) {
	n := 0
	for _, id := range r.state.followUpOrder {
		f := r.state.followUps[id]
		if f.Cups != cups || !isUnclassified(f) {
			continue
		}
		(*memTx)(r).saveFollowUp(id)
		c := category
		f.Category = &c
		f.UpdatedAt = r.now()
		r.state.followUps[id] = f
		n++
	}
	return n, nil
}

func (r *memFollowUps) FindDuplicateKeys(_ context.Context) ([]DuplicateGroup, error) {
	type key struct {
		patient uuid.UUID
		service string
		day     time.Time
	}
	counts := make(map[key]int)
	var order []key
	for _, id := range r.state.followUpOrder {
		f := r.state.followUps[id]
		k := key{f.PatientID, f.ServiceName, f.DateRequest}
		if counts[k] == 0 {
			order = append(order, k)
		}
		counts[k]++
	}
	var groups []DuplicateGroup
	for _, k := range order {
		if counts[k] > 1 {
			groups = append(groups, DuplicateGroup{PatientID: k.patient, ServiceName: k.service, DateRequest: k.day, Count: counts[k]})
		}
	}
	return groups, nil
}

func (r *memFollowUps) CountAppointmentBeforeRequest(_ context.Context) (int, error) {
	n := 0
	for _, f := range r.state.followUps {
		if f.DateAppointment != nil && f.DateAppointment.Before(f.DateRequest) {
			n++
		}
	}
	return n, nil
}
