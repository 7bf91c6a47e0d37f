package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aleister1102/pagewatch/internal/common"
	"github.com/aleister1102/pagewatch/internal/logger"
	"gopkg.in/yaml.v3"
)

// GlobalConfig contains all configuration sections for the application.
type GlobalConfig struct {
	EngineConfig    EngineConfig     `json:"engine_config,omitempty" yaml:"engine_config,omitempty"`
	FetcherConfig   FetcherConfig    `json:"fetcher_config,omitempty" yaml:"fetcher_config,omitempty"`
	AnnotatorConfig AnnotatorConfig  `json:"annotator_config,omitempty" yaml:"annotator_config,omitempty"`
	StorageConfig   StorageConfig    `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	ServerConfig    ServerConfig     `json:"server_config,omitempty" yaml:"server_config,omitempty"`
	LogConfig       logger.LogConfig `json:"log_config,omitempty" yaml:"log_config,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values.
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		EngineConfig:    NewDefaultEngineConfig(),
		FetcherConfig:   NewDefaultFetcherConfig(),
		AnnotatorConfig: NewDefaultAnnotatorConfig(),
		StorageConfig:   NewDefaultStorageConfig(),
		ServerConfig:    NewDefaultServerConfig(),
		LogConfig:       logger.NewDefaultLogConfig(),
	}
}

// LoadGlobalConfig loads the configuration from the given file. Both YAML
// and JSON formats are supported; YAML is chosen by file extension. An empty
// path yields the defaults.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(providedPath)
	if err != nil {
		return nil, common.WrapError(err, "failed to read config file '"+providedPath+"'")
	}

	if err := parseConfigContent(data, providedPath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	return cfg, nil
}

// parseConfigContent parses the config content based on file extension.
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
