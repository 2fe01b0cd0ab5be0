package classify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/oncofollow/oncofollow/internal/domain/followup"
)

// Mode selects the batch strategy.
type Mode string

const (
	// ModeFull re-examines every follow-up.
	ModeFull Mode = "full"
	// ModeByCode labels only unclassified follow-ups, one category per CUPS
	// code.
	ModeByCode Mode = "by-code"
)

func (m Mode) Valid() bool {
	return m == ModeFull || m == ModeByCode
}

// Result reports one classification run.
type Result struct {
	Mode     Mode          `json:"mode"`
	Version  string        `json:"version"`
	Scanned  int           `json:"scanned"`
	Updated  int           `json:"updated"`
	Duration time.Duration `json:"duration"`
}

// Engine assigns modality categories and cohort tags to follow-ups. Every
// run executes in a single transaction: any failure leaves all records as
// they were.
type Engine struct {
	store   followup.TxRunner
	match   *matcher
	version string
	logger  zerolog.Logger
}

func NewEngine(store followup.TxRunner, taxonomy Taxonomy, logger zerolog.Logger) *Engine {
	return &Engine{
		store:   store,
		match:   compile(taxonomy),
		version: taxonomy.Modalities.Version,
		logger:  logger,
	}
}

// Modality returns the category the engine would assign to serviceName.
func (e *Engine) Modality(serviceName string) string {
	return e.match.modality(serviceName)
}

// Cohort returns the suggested cohort for serviceName, if any.
func (e *Engine) Cohort(serviceName string) (string, bool) {
	return e.match.cohort(serviceName)
}

// Kind classifies a stored category value against the taxonomy.
func (e *Engine) Kind(category *string) CategoryKind {
	return e.match.kind(category)
}

// Run executes mode. It is what the import Service calls after an import.
func (e *Engine) Run(ctx context.Context, mode Mode) (*Result, error) {
	switch mode {
	case ModeFull, "":
		return e.Sweep(ctx)
	case ModeByCode:
		return e.ByCode(ctx)
	default:
		return nil, fmt.Errorf("unknown classify mode %q", mode)
	}
}

// Sweep re-classifies every follow-up.
func (e *Engine) Sweep(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Mode: ModeFull, Version: e.version}

	err := e.store.InTx(ctx, func(tx followup.Tx) error {
		items, err := tx.FollowUps().ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list follow-ups: %w", err)
		}
		res.Scanned = len(items)
		res.Updated = 0
		for _, f := range items {
			category, obs, changed := e.reclassify(f)
			if !changed {
				continue
			}
			if err := tx.FollowUps().UpdateClassification(ctx, f.ID, category, obs); err != nil {
				return fmt.Errorf("update follow-up %s: %w", f.ID, err)
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("classification sweep: %w", err)
	}

	res.Duration = time.Since(start)
	e.logger.Info().
		Str("mode", string(res.Mode)).
		Str("version", res.Version).
		Int("scanned", res.Scanned).
		Int("updated", res.Updated).
		Dur("duration", res.Duration).
		Msg("classification finished")
	return res, nil
}

// reclassify computes the category and observation f should carry and
// reports whether either must be written.
func (e *Engine) reclassify(f *followup.FollowUp) (string, string, bool) {
	modality := e.match.modality(f.ServiceName)
	obs := f.Observation

	tagged := false
	if cohort, ok := e.match.cohort(f.ServiceName); ok {
		obs, tagged = followup.AppendTag(obs, followup.TagDxSugerido, cohort)
	}

	old := f.CategoryValue()
	kind := e.match.kind(f.Category)
	if kind == CategoryLegacy && e.match.looksLikeCohort(old) {
		obs, _ = followup.AppendTag(obs, followup.TagCohorteAnterior, old)
	}

	changed := old != modality || kind != CategoryRecognized || tagged
	return modality, obs, changed
}

// ByCode labels unclassified follow-ups grouped by CUPS code, using the most
// frequent service name of each group.
func (e *Engine) ByCode(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Mode: ModeByCode, Version: e.version}

	err := e.store.InTx(ctx, func(tx followup.Tx) error {
		groups, err := tx.FollowUps().ListUnclassifiedCodes(ctx)
		if err != nil {
			return fmt.Errorf("list unclassified codes: %w", err)
		}
		res.Scanned = 0
		res.Updated = 0
		for _, g := range groups {
			res.Scanned += g.Count
			n, err := tx.FollowUps().UpdateCategoryByCode(ctx, g.Cups, e.match.modality(g.ServiceName))
			if err != nil {
				return fmt.Errorf("update code %s: %w", g.Cups, err)
			}
			res.Updated += n
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("classification by code: %w", err)
	}

	res.Duration = time.Since(start)
	e.logger.Info().
		Str("mode", string(res.Mode)).
		Str("version", res.Version).
		Int("scanned", res.Scanned).
		Int("updated", res.Updated).
		Dur("duration", res.Duration).
		Msg("classification finished")
	return res, nil
}
