package scheduler

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aleister1102/pagewatch/internal/models"
)

type workerHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns the worker goroutines of running jobs. It enforces the
// one-worker-per-job invariant at the goroutine level; job status itself is
// owned by the registry.
type Scheduler struct {
	mu      sync.Mutex
	workers map[string]*workerHandle
	logger  zerolog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		workers: make(map[string]*workerHandle),
		logger:  logger.With().Str("component", "Scheduler").Logger(),
	}
}

// Launch starts the worker goroutine for a job. It fails with
// ErrJobAlreadyRunning when a worker is already bound to the id.
func (s *Scheduler) Launch(jobID string, worker *Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workers[jobID]; exists {
		return models.ErrJobAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &workerHandle{cancel: cancel, done: make(chan struct{})}
	s.workers[jobID] = handle

	go func() {
		defer func() {
			close(handle.done)
			s.release(jobID, handle)
		}()
		worker.Run(ctx)
	}()

	return nil
}

// release removes the handle when its worker exits, unless a newer worker
// has already been bound to the id.
func (s *Scheduler) release(jobID string, handle *workerHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.workers[jobID]; ok && current == handle {
		delete(s.workers, jobID)
	}
}

// Halt cancels the job's worker and blocks until it has exited. It returns
// false when no worker was bound.
func (s *Scheduler) Halt(jobID string) bool {
	s.mu.Lock()
	handle, ok := s.workers[jobID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	handle.cancel()
	<-handle.done
	return true
}

// IsRunning reports whether a worker is bound to the job id.
func (s *Scheduler) IsRunning(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.workers[jobID]
	return ok
}

// HaltAll stops every worker and waits for all of them to exit.
func (s *Scheduler) HaltAll() {
	s.mu.Lock()
	handles := make([]*workerHandle, 0, len(s.workers))
	for _, handle := range s.workers {
		handles = append(handles, handle)
	}
	s.mu.Unlock()

	for _, handle := range handles {
		handle.cancel()
	}
	for _, handle := range handles {
		<-handle.done
	}
	s.logger.Info().Int("count", len(handles)).Msg("All workers halted")
}
