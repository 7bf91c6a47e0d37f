package models

import "errors"

var (
	// ErrJobNotFound indicates the requested job id is unknown or deleted.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobAlreadyRunning indicates a start request on a job that already
	// has a live worker bound to it.
	ErrJobAlreadyRunning = errors.New("job already running")
	// ErrJobNotRunning indicates a stop/pause request on a job without a
	// live worker.
	ErrJobNotRunning = errors.New("job not running")
	// ErrJobDeleted indicates an operation on a deleted job id.
	ErrJobDeleted = errors.New("job deleted")
)
