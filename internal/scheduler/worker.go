package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleister1102/pagewatch/internal/annotator"
	"github.com/aleister1102/pagewatch/internal/datastore"
	"github.com/aleister1102/pagewatch/internal/differ"
	"github.com/aleister1102/pagewatch/internal/fetcher"
	"github.com/aleister1102/pagewatch/internal/ledger"
	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/aleister1102/pagewatch/internal/registry"
)

// Worker drives the check loop of a single running job: fetch a snapshot,
// diff it against the previous one, annotate and record any changes, then
// wait out the check interval. Exactly one worker exists per running job.
type Worker struct {
	job         models.Job
	fetcher     fetcher.Fetcher
	differ      *differ.SnapshotDiffer
	annotator   annotator.Annotator
	registry    *registry.Registry
	ledger      *ledger.Ledger
	store       datastore.Store
	logger      zerolog.Logger
	maxFailures int
}

// WorkerConfig bundles the collaborators a worker needs.
type WorkerConfig struct {
	Job         models.Job
	Fetcher     fetcher.Fetcher
	Differ      *differ.SnapshotDiffer
	Annotator   annotator.Annotator
	Registry    *registry.Registry
	Ledger      *ledger.Ledger
	Store       datastore.Store
	Logger      zerolog.Logger
	MaxFailures int
}

// NewWorker creates a worker for one job. The annotator may be nil when no
// credential was supplied at start time.
func NewWorker(cfg WorkerConfig) *Worker {
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &Worker{
		job:         cfg.Job,
		fetcher:     cfg.Fetcher,
		differ:      cfg.Differ,
		annotator:   cfg.Annotator,
		registry:    cfg.Registry,
		ledger:      cfg.Ledger,
		store:       cfg.Store,
		logger:      cfg.Logger.With().Str("component", "JobWorker").Str("job_id", cfg.Job.ID).Logger(),
		maxFailures: maxFailures,
	}
}

// Run executes the check loop until ctx is cancelled or the consecutive
// failure limit escalates the job to the error state. The first fetch
// establishes the baseline; the interval is measured from the completion of
// one check to the start of the next.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().Str("url", w.job.URL).Dur("interval", w.job.CheckInterval).Msg("Worker started")

	var baseline *models.PageSnapshot
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Worker stopping")
			return
		case <-timer.C:
		}

		next, fatal := w.runCheck(ctx, &baseline)
		if fatal {
			return
		}
		if ctx.Err() != nil {
			w.logger.Info().Msg("Worker stopping")
			return
		}
		timer.Reset(next)
	}
}

// runCheck performs one fetch+diff cycle. It returns the delay before the
// next check and whether the worker must exit because the job escalated to
// the error state.
func (w *Worker) runCheck(ctx context.Context, baseline **models.PageSnapshot) (time.Duration, bool) {
	snapshot, err := w.fetcher.Fetch(ctx, w.job.URL)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false
		}
		streak := w.registry.RecordCheckFailure(w.job.ID, err.Error())
		w.logger.Warn().Err(err).Int("consecutive_failures", streak).Msg("Fetch failed")
		if streak >= w.maxFailures {
			message := err.Error()
			if markErr := w.registry.MarkErrored(w.job.ID, message); markErr != nil {
				w.logger.Error().Err(markErr).Msg("Failed to mark job errored")
			}
			return 0, true
		}
		return w.job.CheckInterval, false
	}

	records := w.differ.Diff(*baseline, snapshot)
	*baseline = snapshot

	if len(records) > 0 {
		w.annotateRecords(ctx, records)
		w.ledger.Append(records...)
		if err := w.store.AppendRecords(w.job.ID, records); err != nil {
			w.logger.Error().Err(err).Msg("Failed to persist change records")
		}
		w.logger.Info().Int("changes", len(records)).Msg("Changes detected")
	}

	if err := w.registry.RecordCheckSuccess(w.job.ID, int64(len(records))); err != nil {
		w.logger.Error().Err(err).Msg("Failed to record check success")
	}
	return w.job.CheckInterval, false
}

// annotateRecords enriches each record in place. Annotation failures are
// logged and leave the record unannotated; they never fail the check.
func (w *Worker) annotateRecords(ctx context.Context, records []models.ChangeRecord) {
	if w.annotator == nil {
		return
	}
	for i := range records {
		annotation, err := w.annotator.Annotate(ctx, records[i])
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Warn().Err(err).Str("change_type", string(records[i].Type)).Msg("Annotation unavailable")
			continue
		}
		records[i].Annotation = annotation
	}
}
