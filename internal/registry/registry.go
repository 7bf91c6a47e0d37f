package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aleister1102/pagewatch/internal/datastore"
	"github.com/aleister1102/pagewatch/internal/models"
)

// Registry is the single writer of job metadata. Workers and the engine
// request updates through its methods; reads return copies so callers never
// observe a job mid-mutation. Every mutation is written through to the store.
type Registry struct {
	mu         sync.RWMutex
	jobs       map[string]*models.Job
	tombstones map[string]struct{}
	failures   map[string]int
	store      datastore.Store
	logger     zerolog.Logger
}

// NewRegistry creates an empty registry backed by the given store.
func NewRegistry(store datastore.Store, logger zerolog.Logger) *Registry {
	return &Registry{
		jobs:       make(map[string]*models.Job),
		tombstones: make(map[string]struct{}),
		failures:   make(map[string]int),
		store:      store,
		logger:     logger.With().Str("component", "JobRegistry").Logger(),
	}
}

// Restore loads persisted jobs into the registry. Jobs persisted as running
// are normalized to stopped since no worker survives a restart.
func (r *Registry) Restore() error {
	jobs, err := r.store.LoadJobs()
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, job := range jobs {
		restored := job
		if restored.Status == models.JobStatusRunning {
			restored.Status = models.JobStatusStopped
			if err := r.store.SaveJob(restored); err != nil {
				return err
			}
			r.logger.Info().Str("job_id", restored.ID).Msg("Normalized running job to stopped after restart")
		}
		r.jobs[restored.ID] = &restored
	}

	r.logger.Info().Int("count", len(r.jobs)).Msg("Restored jobs from store")
	return nil
}

// Create registers a new job in the created state and persists it.
func (r *Registry) Create(name, url string, checkInterval time.Duration) (models.Job, error) {
	job := models.Job{
		ID:            uuid.New().String(),
		Name:          name,
		URL:           url,
		CheckInterval: checkInterval,
		Status:        models.JobStatusCreated,
		CreatedAt:     time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.SaveJob(job); err != nil {
		return models.Job{}, err
	}
	r.jobs[job.ID] = &job

	r.logger.Info().Str("job_id", job.ID).Str("url", job.URL).Msg("Job created")
	return job, nil
}

// Get returns a copy of the job, ErrJobDeleted for tombstoned ids, or
// ErrJobNotFound.
func (r *Registry) Get(jobID string) (models.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getLocked(jobID)
}

func (r *Registry) getLocked(jobID string) (models.Job, error) {
	if _, gone := r.tombstones[jobID]; gone {
		return models.Job{}, models.ErrJobDeleted
	}
	job, ok := r.jobs[jobID]
	if !ok {
		return models.Job{}, models.ErrJobNotFound
	}
	return *job, nil
}

// List returns copies of all jobs ordered by creation time.
func (r *Registry) List() []models.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	jobs := make([]models.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	return jobs
}

// MarkRunning transitions a resumable job to running and clears any previous
// error message and failure streak.
func (r *Registry) MarkRunning(jobID string) (models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.getLocked(jobID)
	if err != nil {
		return models.Job{}, err
	}
	if job.Status == models.JobStatusRunning {
		return models.Job{}, models.ErrJobAlreadyRunning
	}
	if !job.Status.IsResumable() {
		return models.Job{}, models.ErrJobNotFound
	}

	job.Status = models.JobStatusRunning
	job.ErrorMessage = ""
	r.failures[jobID] = 0
	if err := r.store.SaveJob(job); err != nil {
		return models.Job{}, err
	}
	*r.jobs[jobID] = job

	r.logger.Info().Str("job_id", jobID).Msg("Job marked running")
	return job, nil
}

// SetStatusIfRunning moves a running job to the given terminal-for-the-worker
// status. It is a no-op when the job already left the running state, so a
// fatal worker error recorded concurrently wins over a stop or pause request.
func (r *Registry) SetStatusIfRunning(jobID string, status models.JobStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.getLocked(jobID)
	if err != nil {
		return false, err
	}
	if job.Status != models.JobStatusRunning {
		return false, nil
	}

	job.Status = status
	if err := r.store.SaveJob(job); err != nil {
		return false, err
	}
	*r.jobs[jobID] = job

	r.logger.Info().Str("job_id", jobID).Str("status", string(status)).Msg("Job status updated")
	return true, nil
}

// RecordCheckSuccess updates the job's check counters after a successful
// fetch and diff. Failed fetches never reach this path.
func (r *Registry) RecordCheckSuccess(jobID string, changes int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.getLocked(jobID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	job.LastCheck = &now
	job.TotalChecks++
	job.ChangesDetected += changes
	job.ErrorMessage = ""
	r.failures[jobID] = 0

	if err := r.store.SaveJob(job); err != nil {
		return err
	}
	*r.jobs[jobID] = job
	return nil
}

// RecordCheckFailure records the failure message on the job, increments its
// consecutive failure streak and returns the new count. The job stays
// running; counters and last_check are untouched.
func (r *Registry) RecordCheckFailure(jobID, message string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.getLocked(jobID)
	if err != nil {
		return 0
	}

	job.ErrorMessage = message
	if err := r.store.SaveJob(job); err != nil {
		r.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to persist check failure")
	}
	*r.jobs[jobID] = job

	r.failures[jobID]++
	return r.failures[jobID]
}

// MarkErrored transitions the job to the error state with the given message.
func (r *Registry) MarkErrored(jobID string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, err := r.getLocked(jobID)
	if err != nil {
		return err
	}

	job.Status = models.JobStatusError
	job.ErrorMessage = message
	if err := r.store.SaveJob(job); err != nil {
		return err
	}
	*r.jobs[jobID] = job

	r.logger.Warn().Str("job_id", jobID).Str("error", message).Msg("Job marked errored")
	return nil
}

// Remove tombstones the job and deletes it from the store. The id is never
// reused for lookups afterwards.
func (r *Registry) Remove(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.getLocked(jobID); err != nil {
		return err
	}
	if err := r.store.DeleteJob(jobID); err != nil {
		return err
	}

	delete(r.jobs, jobID)
	delete(r.failures, jobID)
	r.tombstones[jobID] = struct{}{}

	r.logger.Info().Str("job_id", jobID).Msg("Job deleted")
	return nil
}

// StatusCounts returns the number of jobs per lifecycle status.
func (r *Registry) StatusCounts() map[models.JobStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[models.JobStatus]int)
	for _, job := range r.jobs {
		counts[job.Status]++
	}
	return counts
}
