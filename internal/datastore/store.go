package datastore

import "github.com/aleister1102/pagewatch/internal/models"

// Store persists job definitions and their retained change records so the
// engine can recover state across restarts.
type Store interface {
	// SaveJob inserts or updates a job row.
	SaveJob(job models.Job) error
	// DeleteJob removes a job and all of its change records.
	DeleteJob(jobID string) error
	// LoadJobs returns every persisted job.
	LoadJobs() ([]models.Job, error)
	// AppendRecords persists change records for a job.
	AppendRecords(jobID string, records []models.ChangeRecord) error
	// LoadRecords returns up to limit of the most recent records for a job,
	// in chronological order.
	LoadRecords(jobID string, limit int) ([]models.ChangeRecord, error)
	// Close releases the underlying storage.
	Close() error
}
