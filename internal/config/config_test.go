package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "./data/quillpress.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.Database.ArchiveDays)
	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, 3, cfg.Webhooks.RetryCount)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
database:
  path: /tmp/test.db
  archive_days: 7
ai:
  model: gemini-1.5-pro
  timeout: 60s
logging:
  level: debug
  format: text
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Database.ArchiveDays)
	assert.Equal(t, "gemini-1.5-pro", cfg.AI.Model)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Webhooks.WorkerCount)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("QUILLPRESS_PORT", "7070")
	t.Setenv("QUILLPRESS_DB_PATH", "/var/lib/qp.db")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("QUILLPRESS_AI_MODEL", "gemini-2.5-flash")
	t.Setenv("QUILLPRESS_LOG_LEVEL", "warn")

	cfg := defaults()
	cfg.ApplyEnv()

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/var/lib/qp.db", cfg.Database.Path)
	assert.Equal(t, "test-key", cfg.AI.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestApplyEnvIgnoresInvalidPort(t *testing.T) {
	t.Setenv("QUILLPRESS_PORT", "not-a-port")

	cfg := defaults()
	cfg.ApplyEnv()

	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty db path", func(c *Config) { c.Database.Path = "" }},
		{"negative archive days", func(c *Config) { c.Database.ArchiveDays = -1 }},
		{"empty ai model", func(c *Config) { c.AI.Model = "" }},
		{"negative retry count", func(c *Config) { c.Webhooks.RetryCount = -1 }},
		{"zero workers", func(c *Config) { c.Webhooks.WorkerCount = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
