package config

import "time"

// EngineConfig defines configuration for the job monitoring engine.
type EngineConfig struct {
	MinCheckIntervalSeconds int `json:"min_check_interval_seconds,omitempty" yaml:"min_check_interval_seconds,omitempty" validate:"omitempty,min=1"`
	LedgerCap               int `json:"ledger_cap,omitempty" yaml:"ledger_cap,omitempty" validate:"omitempty,min=1"`
	// MaxConsecutiveFailures is the number of consecutive fetch failures
	// after which a job transitions to the error state and its worker halts.
	MaxConsecutiveFailures int `json:"max_consecutive_failures,omitempty" yaml:"max_consecutive_failures,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultEngineConfig creates default engine configuration.
func NewDefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinCheckIntervalSeconds: 60,
		LedgerCap:               200,
		MaxConsecutiveFailures:  3,
	}
}

// MinCheckInterval returns the minimum allowed per-job check interval.
func (c EngineConfig) MinCheckInterval() time.Duration {
	return time.Duration(c.MinCheckIntervalSeconds) * time.Second
}
