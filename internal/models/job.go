package models

import (
	"encoding/json"
	"time"
)

// JobStatus represents the lifecycle state of a monitoring job.
type JobStatus string

const (
	JobStatusCreated JobStatus = "created"
	JobStatusRunning JobStatus = "running"
	JobStatusPaused  JobStatus = "paused"
	JobStatusStopped JobStatus = "stopped"
	JobStatusError   JobStatus = "error"
	JobStatusDeleted JobStatus = "deleted"
)

// IsResumable reports whether a job in this status may be started.
func (s JobStatus) IsResumable() bool {
	switch s {
	case JobStatusCreated, JobStatusPaused, JobStatusStopped, JobStatusError:
		return true
	default:
		return false
	}
}

// Job is one configured monitoring task. The job registry is the only
// writer of Job fields; workers request updates through registry methods.
type Job struct {
	ID              string        `json:"job_id"`
	Name            string        `json:"name"`
	URL             string        `json:"url"`
	CheckInterval   time.Duration `json:"-"`
	Status          JobStatus     `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	LastCheck       *time.Time    `json:"last_check,omitempty"`
	TotalChecks     int64         `json:"total_checks"`
	ChangesDetected int64         `json:"changes_detected"`
	ErrorMessage    string        `json:"error_message,omitempty"`
}

type jobAlias Job

// MarshalJSON exposes the check interval in seconds, matching the unit used
// on job creation.
func (j Job) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		jobAlias
		CheckIntervalSeconds int64 `json:"check_interval_seconds"`
	}{jobAlias(j), int64(j.CheckInterval / time.Second)})
}
