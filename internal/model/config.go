package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// RemoteConfig holds the settings for the task endpoint.
type RemoteConfig struct {
	// BaseURL is the root URL of the task service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TasksPath is the resource path appended to BaseURL.
	TasksPath string `mapstructure:"tasks_path" yaml:"tasks_path"`

	// TimeoutSec bounds each fetch round trip.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// DatabaseConfig holds the local cache settings.
type DatabaseConfig struct {
	// Path is the SQLite database file location.
	Path string `mapstructure:"path" yaml:"path"`
}

// ConnectivityConfig holds reachability probe settings.
type ConnectivityConfig struct {
	// ProbeAddr is the TCP address dialed to confirm the device has a
	// validated internet path, not merely an interface that is up.
	ProbeAddr string `mapstructure:"probe_addr" yaml:"probe_addr"`

	// ProbeIntervalSec is how often the monitor re-checks reachability
	// while someone is watching.
	ProbeIntervalSec int `mapstructure:"probe_interval_sec" yaml:"probe_interval_sec"`
}

// Config is the top-level application configuration.
type Config struct {
	Remote       RemoteConfig       `mapstructure:"remote" yaml:"remote"`
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" yaml:"connectivity"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/trainmaint/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "trainmaint", "config.yaml")
}

// defaultConfig returns a sensible default configuration.
func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			TasksPath:  "/tasks",
			TimeoutSec: 30,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(".", "trainmaint.db"),
		},
		Connectivity: ConnectivityConfig{
			ProbeAddr:        "1.1.1.1:443",
			ProbeIntervalSec: 15,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("remote.tasks_path", "/tasks")
	v.SetDefault("remote.timeout_sec", 30)
	v.SetDefault("database.path", filepath.Join(".", "trainmaint.db"))
	v.SetDefault("connectivity.probe_addr", "1.1.1.1:443")
	v.SetDefault("connectivity.probe_interval_sec", 15)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("remote", cfg.Remote)
	v.Set("database", cfg.Database)
	v.Set("connectivity", cfg.Connectivity)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
