package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/oncofollow/oncofollow/internal/classify"
	"github.com/oncofollow/oncofollow/internal/domain/followup"
	"github.com/oncofollow/oncofollow/internal/platform/lock"
)

// lockKey serializes imports: rows of two files sharing a patient would
// otherwise race on the patient read-then-write.
const lockKey = "import"

// Classifier is the post-import classification step.
type Classifier interface {
	Run(ctx context.Context, mode classify.Mode) (*classify.Result, error)
}

type Options struct {
	ClassifyAfterImport bool
	ClassifyMode        classify.Mode
}

// Service runs whole imports: read, write row by row, classify.
type Service struct {
	store      followup.TxRunner
	locker     lock.Locker
	classifier Classifier
	opts       Options
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(store followup.TxRunner, locker lock.Locker, classifier Classifier, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		store:      store,
		locker:     locker,
		classifier: classifier,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Import reads data and persists every row. Only an unreadable source, a
// held lock or a cancelled context return an error; row failures are
// counted in the Summary. A failed classification leaves the imported rows
// in place and is reported in Summary.ClassifyError.
func (s *Service) Import(ctx context.Context, name string, data []byte) (*Summary, error) {
	start := time.Now()
	log := s.logger.With().Str("file", name).Logger()

	release, err := s.locker.Acquire(ctx, lockKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("release import lock")
		}
	}()

	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("format", r.Format).
		Strs("header", r.Header()).
		Msg("source opened")

	w := NewWriter(s.store, log)
	w.now = s.now
	sum, err := w.WriteAll(ctx, r)
	sum.Skipped += r.BrokenLines()
	if err != nil {
		return sum, fmt.Errorf("import %s: %w", name, err)
	}

	if s.opts.ClassifyAfterImport && s.classifier != nil {
		res, err := s.classifier.Run(ctx, s.opts.ClassifyMode)
		if err != nil {
			log.Error().Err(err).Msg("classification after import failed")
			sum.ClassifyError = err.Error()
		} else {
			sum.Classified = res.Updated
		}
	}

	log.Info().
		Str("format", r.Format).
		Int("rows_read", sum.RowsRead).
		Int("patients_created", sum.PatientsCreated).
		Int("patients_updated", sum.PatientsUpdated).
		Int("follow_ups_created", sum.FollowUpsCreated).
		Int("follow_ups_updated", sum.FollowUpsUpdated).
		Int("skipped", sum.Skipped).
		Int("errors", sum.Errors).
		Int("classified", sum.Classified).
		Dur("duration", time.Since(start)).
		Msg("import finished")
	return sum, nil
}

// Audit returns the data-quality report over all stored follow-ups.
func (s *Service) Audit(ctx context.Context) (*followup.AuditReport, error) {
	var report *followup.AuditReport
	err := s.store.InTx(ctx, func(tx followup.Tx) error {
		var err error
		report, err = followup.Audit(ctx, tx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	return report, nil
}
