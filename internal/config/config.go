// Package config provides configuration loading for swarmintel.
//
// Values come from built-in defaults, an optional YAML file and
// SWARMINTEL_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Merge policies for folding a new observation into an existing pattern.
const (
	MergeFirst = "first"
	MergeBest  = "best"
)

// Config holds the complete swarmintel configuration.
type Config struct {
	Storage   StorageConfig   `koanf:"storage"`
	Roster    RosterConfig    `koanf:"roster"`
	Learning  LearningConfig  `koanf:"learning"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// StorageConfig selects where patterns and tasks are persisted.
type StorageConfig struct {
	Backend     string   `koanf:"backend"`
	DataDir     string   `koanf:"data_dir"`
	SQLitePath  string   `koanf:"sqlite_path"`
	BusyTimeout Duration `koanf:"busy_timeout"`
}

// RosterConfig points at an optional YAML roster overriding the built-in tables.
type RosterConfig struct {
	Path string `koanf:"path"`
}

// LearningConfig tunes pattern learning and recommendation.
type LearningConfig struct {
	MergePolicy    string `koanf:"merge_policy"`
	RecommendLimit int    `koanf:"recommend_limit"`
	QueryLimit     int    `koanf:"query_limit"`
	RecentLimit    int    `koanf:"recent_limit"`
}

// LoggingConfig holds the logger settings exposed through the config file.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	ServiceName     string   `koanf:"service_name"`
	SampleRate      float64  `koanf:"sample_rate"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig controls the Prometheus textfile snapshot.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// Default returns the configuration used when nothing overrides it.
// The data directory resolves to ~/.local/share/swarmintel, falling back
// to ./.swarmintel when the home directory is unknown.
func Default() *Config {
	dataDir := ".swarmintel"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "swarmintel")
	}
	return &Config{
		Storage: StorageConfig{
			Backend:     BackendJSON,
			DataDir:     dataDir,
			BusyTimeout: Duration(5 * time.Second),
		},
		Learning: LearningConfig{
			MergePolicy:    MergeFirst,
			RecommendLimit: 5,
			QueryLimit:     5,
			RecentLimit:    10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:         false,
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
			ServiceName:     "swarmintel",
			SampleRate:      1.0,
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// SQLiteFile returns the database path, defaulting into the data directory.
func (c *Config) SQLiteFile() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.Storage.DataDir, "swarm.db")
}

// Validate checks configuration for errors.
//
// Returns an error if:
//   - The storage backend is unknown
//   - The data directory is empty for the json backend
//   - The merge policy is unknown
//   - A learning limit is not positive
//   - Telemetry is enabled without an endpoint or with an unknown protocol
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendJSON:
		if c.Storage.DataDir == "" {
			return errors.New("storage.data_dir is required for the json backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" && c.Storage.DataDir == "" {
			return errors.New("storage.sqlite_path or storage.data_dir is required for the sqlite backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of json, sqlite, memory; got %q", c.Storage.Backend)
	}

	switch c.Learning.MergePolicy {
	case MergeFirst, MergeBest:
	default:
		return fmt.Errorf("learning.merge_policy must be %q or %q, got %q", MergeFirst, MergeBest, c.Learning.MergePolicy)
	}
	if c.Learning.RecommendLimit <= 0 {
		return fmt.Errorf("learning.recommend_limit must be positive, got %d", c.Learning.RecommendLimit)
	}
	if c.Learning.QueryLimit <= 0 {
		return fmt.Errorf("learning.query_limit must be positive, got %d", c.Learning.QueryLimit)
	}
	if c.Learning.RecentLimit <= 0 {
		return fmt.Errorf("learning.recent_limit must be positive, got %d", c.Learning.RecentLimit)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry.endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry.protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
		}
	}
	return nil
}
