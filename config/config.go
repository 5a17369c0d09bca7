package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Cluster  ClusterConfig  `mapstructure:"cluster"`
	Identity IdentityConfig `mapstructure:"identity"`
	Store    StoreConfig    `mapstructure:"store"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig contains the HTTP status surface configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ClusterConfig contains orchestrator configuration
type ClusterConfig struct {
	NodeID            string `mapstructure:"node_id"`
	BindAddr          string `mapstructure:"bind_addr"`
	Port              int    `mapstructure:"port"`
	HeartbeatInterval int    `mapstructure:"heartbeat_interval"` // seconds
	ElectionTimeout   int    `mapstructure:"election_timeout"`   // seconds
}

// IdentityConfig contains the optional pre-shared identity key
type IdentityConfig struct {
	Key string `mapstructure:"key"`
}

// StoreConfig contains cluster store configuration
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DataDir string `mapstructure:"data_dir"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/voicemesh")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("VOICEMESH")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8765)

	// Cluster defaults
	viper.SetDefault("cluster.node_id", "")
	viper.SetDefault("cluster.bind_addr", "0.0.0.0")
	viper.SetDefault("cluster.port", 8766)
	viper.SetDefault("cluster.heartbeat_interval", 5)
	viper.SetDefault("cluster.election_timeout", 15)

	// Identity defaults
	viper.SetDefault("identity.key", "")

	// Store defaults
	viper.SetDefault("store.backend", "badger")
	viper.SetDefault("store.data_dir", "./data")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	config.Store.DataDir = filepath.Clean(config.Store.DataDir)

	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if config.Cluster.Port < 1 || config.Cluster.Port > 65535 {
		return fmt.Errorf("cluster.port must be between 1 and 65535")
	}
	if config.Cluster.HeartbeatInterval < 1 {
		return fmt.Errorf("cluster.heartbeat_interval must be at least 1 second")
	}
	if config.Cluster.ElectionTimeout <= config.Cluster.HeartbeatInterval {
		return fmt.Errorf("cluster.election_timeout must exceed cluster.heartbeat_interval")
	}
	return nil
}

// GetDefaultConfig returns a default configuration
func GetDefaultConfig() *Config {
	setDefaults()

	var config Config
	viper.Unmarshal(&config)
	validateConfig(&config)

	return &config
}
