package engine

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aleister1102/pagewatch/internal/annotator"
	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/aleister1102/pagewatch/internal/config"
	"github.com/aleister1102/pagewatch/internal/datastore"
	"github.com/aleister1102/pagewatch/internal/differ"
	"github.com/aleister1102/pagewatch/internal/fetcher"
	"github.com/aleister1102/pagewatch/internal/ledger"
	"github.com/aleister1102/pagewatch/internal/models"
	"github.com/aleister1102/pagewatch/internal/registry"
	"github.com/aleister1102/pagewatch/internal/scheduler"
	"github.com/aleister1102/pagewatch/internal/stats"
)

// AnnotatorFactory builds an annotator bound to a credential supplied at job
// start time. Returning nil disables annotation for that worker.
type AnnotatorFactory func(credential string) annotator.Annotator

// Engine is the façade over the job registry, the scheduler and per-job
// ledgers. Its mutex serializes structural operations so lifecycle
// transitions observe a consistent worker/status pairing.
type Engine struct {
	mu               sync.Mutex
	cfg              *config.GlobalConfig
	registry         *registry.Registry
	scheduler        *scheduler.Scheduler
	differ           *differ.SnapshotDiffer
	fetcher          fetcher.Fetcher
	store            datastore.Store
	ledgers          map[string]*ledger.Ledger
	annotatorFactory AnnotatorFactory
	logger           zerolog.Logger
}

// NewEngine assembles an engine, restores persisted jobs and rehydrates
// their ledgers. Jobs persisted as running come back stopped.
func NewEngine(cfg *config.GlobalConfig, pageFetcher fetcher.Fetcher, store datastore.Store, log zerolog.Logger) (*Engine, error) {
	engineLogger := log.With().Str("component", "Engine").Logger()

	reg := registry.NewRegistry(store, log)
	if err := reg.Restore(); err != nil {
		return nil, common.WrapError(err, "failed to restore jobs")
	}

	eng := &Engine{
		cfg:       cfg,
		registry:  reg,
		scheduler: scheduler.NewScheduler(log),
		differ: differ.NewSnapshotDiffer(differ.DiffConfig{
			MinTextFragment:       cfg.FetcherConfig.MinTextFragment,
			MaxFragmentLength:     differ.DefaultDiffConfig().MaxFragmentLength,
			EnableSemanticCleanup: true,
		}),
		fetcher: pageFetcher,
		store:   store,
		ledgers: make(map[string]*ledger.Ledger),
		annotatorFactory: func(credential string) annotator.Annotator {
			if credential == "" {
				return nil
			}
			return annotator.NewOpenAIAnnotator(cfg.AnnotatorConfig, credential, log)
		},
		logger: engineLogger,
	}

	for _, job := range reg.List() {
		jobLedger := ledger.NewLedger(cfg.EngineConfig.LedgerCap)
		records, err := store.LoadRecords(job.ID, cfg.EngineConfig.LedgerCap)
		if err != nil {
			return nil, common.WrapError(err, "failed to rehydrate ledger for job "+job.ID)
		}
		jobLedger.Append(records...)
		eng.ledgers[job.ID] = jobLedger
	}

	engineLogger.Info().Int("jobs", len(eng.ledgers)).Msg("Engine initialized")
	return eng, nil
}

// SetAnnotatorFactory overrides how per-job annotators are built.
func (e *Engine) SetAnnotatorFactory(factory AnnotatorFactory) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.annotatorFactory = factory
}

// CreateJob validates and registers a new monitoring job in the created
// state. It does not start checking.
func (e *Engine) CreateJob(name, rawURL string, checkInterval time.Duration) (models.Job, error) {
	if err := e.validateJobURL(rawURL); err != nil {
		return models.Job{}, err
	}
	if minInterval := e.cfg.EngineConfig.MinCheckInterval(); checkInterval < minInterval {
		return models.Job{}, common.NewValidationError("check_interval", checkInterval.String(),
			"check interval must be at least "+minInterval.String())
	}
	if name == "" {
		name = rawURL
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	job, err := e.registry.Create(name, rawURL, checkInterval)
	if err != nil {
		return models.Job{}, err
	}
	e.ledgers[job.ID] = ledger.NewLedger(e.cfg.EngineConfig.LedgerCap)
	return job, nil
}

func (e *Engine) validateJobURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return common.NewValidationError("url", rawURL, "url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return common.NewValidationError("url", rawURL, "url must be a valid http or https URL")
	}
	return nil
}

// GetJob returns the job with the given id.
func (e *Engine) GetJob(jobID string) (models.Job, error) {
	return e.registry.Get(jobID)
}

// ListJobs returns all jobs ordered by creation time.
func (e *Engine) ListJobs() []models.Job {
	return e.registry.List()
}

// StartJob transitions a resumable job to running and launches its worker.
// The credential enables annotation for this run and is never stored.
func (e *Engine) StartJob(jobID, credential string) (models.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scheduler.IsRunning(jobID) {
		current, err := e.registry.Get(jobID)
		if err != nil {
			return models.Job{}, err
		}
		if current.Status == models.JobStatusRunning {
			return models.Job{}, models.ErrJobAlreadyRunning
		}
		// The worker already left the running state and is on its way out;
		// wait for it before binding a new one.
		e.scheduler.Halt(jobID)
	}

	job, err := e.registry.MarkRunning(jobID)
	if err != nil {
		return models.Job{}, err
	}

	worker := scheduler.NewWorker(scheduler.WorkerConfig{
		Job:         job,
		Fetcher:     e.fetcher,
		Differ:      e.differ,
		Annotator:   e.annotatorFactory(credential),
		Registry:    e.registry,
		Ledger:      e.ledgers[jobID],
		Store:       e.store,
		Logger:      e.logger,
		MaxFailures: e.cfg.EngineConfig.MaxConsecutiveFailures,
	})

	if err := e.scheduler.Launch(jobID, worker); err != nil {
		// Roll the status back so the invariant holds.
		if _, rollbackErr := e.registry.SetStatusIfRunning(jobID, models.JobStatusStopped); rollbackErr != nil {
			e.logger.Error().Err(rollbackErr).Str("job_id", jobID).Msg("Failed to roll back job status")
		}
		return models.Job{}, err
	}
	return job, nil
}

// StopJob halts the job's worker and moves it to stopped. A worker that
// escalated to the error state concurrently keeps that state.
func (e *Engine) StopJob(jobID string) (models.Job, error) {
	return e.haltJob(jobID, models.JobStatusStopped)
}

// PauseJob halts the job's worker and moves it to paused. On resume the
// baseline is re-established, so changes across the pause window are not
// reported.
func (e *Engine) PauseJob(jobID string) (models.Job, error) {
	return e.haltJob(jobID, models.JobStatusPaused)
}

func (e *Engine) haltJob(jobID string, status models.JobStatus) (models.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.registry.Get(jobID); err != nil {
		return models.Job{}, err
	}
	if !e.scheduler.Halt(jobID) {
		return models.Job{}, models.ErrJobNotRunning
	}
	if _, err := e.registry.SetStatusIfRunning(jobID, status); err != nil {
		return models.Job{}, err
	}
	return e.registry.Get(jobID)
}

// DeleteJob halts any live worker, removes the job and drops its ledger.
// The id is never reused.
func (e *Engine) DeleteJob(jobID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.registry.Get(jobID); err != nil {
		return err
	}
	e.scheduler.Halt(jobID)

	if err := e.registry.Remove(jobID); err != nil {
		return err
	}
	delete(e.ledgers, jobID)
	return nil
}

// Results returns up to limit retained change records for the job, most
// recent first. A non-positive limit returns everything retained.
func (e *Engine) Results(jobID string, limit int) ([]models.ChangeRecord, error) {
	if _, err := e.registry.Get(jobID); err != nil {
		return nil, err
	}

	e.mu.Lock()
	jobLedger := e.ledgers[jobID]
	e.mu.Unlock()
	if jobLedger == nil {
		return nil, models.ErrJobNotFound
	}
	return jobLedger.Recent(limit), nil
}

// Stats derives the job's summary from its counters and retained records.
func (e *Engine) Stats(jobID string) (models.JobStats, error) {
	job, err := e.registry.Get(jobID)
	if err != nil {
		return models.JobStats{}, err
	}

	e.mu.Lock()
	jobLedger := e.ledgers[jobID]
	e.mu.Unlock()
	if jobLedger == nil {
		return models.JobStats{}, models.ErrJobNotFound
	}
	return stats.Aggregate(job, jobLedger.Snapshot()), nil
}

// SystemStatus aggregates job counts by lifecycle status.
func (e *Engine) SystemStatus() models.SystemStatus {
	counts := e.registry.StatusCounts()
	status := models.SystemStatus{
		CreatedJobs: counts[models.JobStatusCreated],
		RunningJobs: counts[models.JobStatusRunning],
		PausedJobs:  counts[models.JobStatusPaused],
		StoppedJobs: counts[models.JobStatusStopped],
		ErrorJobs:   counts[models.JobStatusError],
		SystemTime:  time.Now().UTC(),
	}
	status.TotalJobs = status.CreatedJobs + status.RunningJobs + status.PausedJobs + status.StoppedJobs + status.ErrorJobs
	return status
}

// Shutdown halts every worker and persists running jobs as stopped.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scheduler.HaltAll()
	for _, job := range e.registry.List() {
		if job.Status != models.JobStatusRunning {
			continue
		}
		if _, err := e.registry.SetStatusIfRunning(job.ID, models.JobStatusStopped); err != nil {
			e.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to stop job during shutdown")
		}
	}
	e.logger.Info().Msg("Engine shut down")
}
