package models

import "time"

// JobStats is the on-demand summary derived from a job's ledger plus the
// job's own counters. Purely derived, never stored.
type JobStats struct {
	JobID            string             `json:"job_id"`
	Status           JobStatus          `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	LastCheck        *time.Time         `json:"last_check,omitempty"`
	TotalChecks      int64              `json:"total_checks"`
	ChangesDetected  int64              `json:"changes_detected"`
	RetainedChanges  int                `json:"retained_changes"`
	ErrorMessage     string             `json:"error_message,omitempty"`
	ChangeTypeCounts map[ChangeType]int `json:"change_types"`
	AnnotatedCount   int                `json:"annotated_count"`
	EntitiesDetected []string           `json:"entities_detected,omitempty"`
}

// SystemStatus aggregates job counts by status across the whole engine.
type SystemStatus struct {
	TotalJobs   int       `json:"total_jobs"`
	CreatedJobs int       `json:"created_jobs"`
	RunningJobs int       `json:"running_jobs"`
	PausedJobs  int       `json:"paused_jobs"`
	StoppedJobs int       `json:"stopped_jobs"`
	ErrorJobs   int       `json:"error_jobs"`
	SystemTime  time.Time `json:"system_time"`
}
