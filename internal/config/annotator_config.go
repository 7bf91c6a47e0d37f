package config

import "time"

// AnnotatorConfig defines configuration for the AI annotation capability.
// The credential itself is never configured here; it is supplied per job at
// start time.
type AnnotatorConfig struct {
	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty" validate:"omitempty,url"`
	Model          string `json:"model,omitempty" yaml:"model,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultAnnotatorConfig creates default annotator configuration.
func NewDefaultAnnotatorConfig() AnnotatorConfig {
	return AnnotatorConfig{
		BaseURL:        "https://openrouter.ai/api/v1",
		Model:          "deepseek/deepseek-r1:free",
		TimeoutSeconds: 30,
	}
}

// Timeout returns the per-annotation call timeout.
func (c AnnotatorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
