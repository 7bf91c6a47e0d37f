package config

import "time"

// FetcherConfig defines configuration for the headless browser fetcher.
type FetcherConfig struct {
	PageTimeoutSeconds int    `json:"page_timeout_seconds,omitempty" yaml:"page_timeout_seconds,omitempty" validate:"omitempty,min=1"`
	ChromePath         string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	UserDataDir        string `json:"user_data_dir,omitempty" yaml:"user_data_dir,omitempty"`
	DisableImages      bool   `json:"disable_images" yaml:"disable_images"`
	// MinTextFragment is the minimum length of a text fragment before it is
	// considered a reportable content change.
	MinTextFragment int `json:"min_text_fragment,omitempty" yaml:"min_text_fragment,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultFetcherConfig creates default fetcher configuration.
func NewDefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		PageTimeoutSeconds: 30,
		DisableImages:      false,
		MinTextFragment:    20,
	}
}

// PageTimeout returns the per-fetch timeout.
func (c FetcherConfig) PageTimeout() time.Duration {
	return time.Duration(c.PageTimeoutSeconds) * time.Second
}
