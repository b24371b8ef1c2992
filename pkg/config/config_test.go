package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, ":8081", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 5*time.Second, cfg.Storage.Timeout)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Address, cfg.Server.Address)
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  address: ":9000"
storage:
  backend: sqlite
sqlite:
  path: "/tmp/test.db"
history:
  default_limit: 25
  max_limit: 100
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/test.db", cfg.SQLite.Path)
	assert.Equal(t, 25, cfg.History.DefaultLimit)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Signal.PingInterval)
}

func TestLoadInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: carrier-pigeon\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ECHOLINK_STORAGE_BACKEND", "redis")
	t.Setenv("ECHOLINK_REDIS_ADDRESS", "redis.internal:6379")
	t.Setenv("PORT", "9100")
	t.Setenv("HOST", "0.0.0.0")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Address)
	assert.Equal(t, "0.0.0.0:9100", cfg.Server.Address)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.Server.Address = "" }},
		{"bad backend", func(c *Config) { c.Storage.Backend = "floppy" }},
		{"zero storage timeout", func(c *Config) { c.Storage.Timeout = 0 }},
		{"retry without attempts", func(c *Config) { c.Storage.RetryEnabled = true; c.Storage.MaxAttempts = 0 }},
		{"redis without address", func(c *Config) { c.Storage.Backend = "redis"; c.Redis.Address = "" }},
		{"sqlite without path", func(c *Config) { c.Storage.Backend = "sqlite"; c.SQLite.Path = "" }},
		{"max below default limit", func(c *Config) { c.History.MaxLimit = c.History.DefaultLimit - 1 }},
		{"empty jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }},
		{"rate limit without rps", func(c *Config) { c.RateLimiting.Enabled = true; c.RateLimiting.HTTP.RequestsPerSecond = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
