package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, BackendJSON, cfg.Storage.Backend)
	assert.Equal(t, filepath.Join("/home/tester", ".local", "share", "swarmintel"), cfg.Storage.DataDir)
	assert.Equal(t, 5*time.Second, cfg.Storage.BusyTimeout.Duration())
	assert.Equal(t, MergeFirst, cfg.Learning.MergePolicy)
	assert.Equal(t, 5, cfg.Learning.RecommendLimit)
	assert.Equal(t, 10, cfg.Learning.RecentLimit)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestConfig_SQLiteFile(t *testing.T) {
	cfg := Default()
	cfg.Storage.DataDir = "/data"
	assert.Equal(t, "/data/swarm.db", cfg.SQLiteFile())

	cfg.Storage.SQLitePath = "/var/lib/swarm.sqlite"
	assert.Equal(t, "/var/lib/swarm.sqlite", cfg.SQLiteFile())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:   "memory backend needs no paths",
			mutate: func(c *Config) { c.Storage.Backend = BackendMemory; c.Storage.DataDir = "" },
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: "storage.backend",
		},
		{
			name:    "json without data dir",
			mutate:  func(c *Config) { c.Storage.DataDir = "" },
			wantErr: "storage.data_dir",
		},
		{
			name: "sqlite without any path",
			mutate: func(c *Config) {
				c.Storage.Backend = BackendSQLite
				c.Storage.DataDir = ""
			},
			wantErr: "storage.sqlite_path",
		},
		{
			name:    "unknown merge policy",
			mutate:  func(c *Config) { c.Learning.MergePolicy = "latest" },
			wantErr: "learning.merge_policy",
		},
		{
			name:    "zero recommend limit",
			mutate:  func(c *Config) { c.Learning.RecommendLimit = 0 },
			wantErr: "learning.recommend_limit",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name: "telemetry without endpoint",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Endpoint = ""
			},
			wantErr: "telemetry.endpoint",
		},
		{
			name: "telemetry with unknown protocol",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Protocol = "udp"
			},
			wantErr: "telemetry.protocol",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("250ms")))
	assert.Equal(t, 250*time.Millisecond, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))

	text, err := Duration(2 * time.Second).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2s", string(text))
}
