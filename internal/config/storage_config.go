package config

// StorageConfig defines configuration for durable job and result storage.
type StorageConfig struct {
	DatabasePath string `json:"database_path,omitempty" yaml:"database_path,omitempty"`
}

// NewDefaultStorageConfig creates default storage configuration.
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DatabasePath: "data/pagewatch.db",
	}
}

// ServerConfig defines configuration for the HTTP API server.
type ServerConfig struct {
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty"`
}

// NewDefaultServerConfig creates default server configuration.
func NewDefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress: ":8080",
	}
}
