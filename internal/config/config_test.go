package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidYAML(t *testing.T) {
	path := writeFile(t, "jobstats.yaml", `
server:
  port: 9090
  cors_origins: ["https://jobs.example.com"]
data_access:
  addr: data-access:50051
engine:
  page_size: 250
  call_timeout: 3s
  correlation_policy: zero_on_error
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://jobs.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "data-access:50051", cfg.DataAccess.Addr)
	assert.Equal(t, 250, cfg.Engine.PageSize)
	assert.Equal(t, 3*time.Second, cfg.Engine.CallTimeout.Std())
	assert.Equal(t, "zero_on_error", cfg.Engine.CorrelationPolicy)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Untouched fields keep their defaults.
	assert.Equal(t, ":50051", cfg.DataAccess.ListenAddr)
	assert.Equal(t, 8, cfg.Engine.CorrelationConcurrency)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeFile(t, "jobstats.json", `{
		"server": {"port": 7000, "shutdown_timeout": "2s"},
		"database": {"url": "postgres://localhost/jobs"}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout.Std())
	assert.Equal(t, "postgres://localhost/jobs", cfg.Database.URL)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{ invalid json }`)

	cfg, err := LoadConfig(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	path := writeFile(t, "config.yaml", "engine:\n  call_timeout: soon\n")

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"DATABASE_URL":                "postgres://db/jobs",
		"JOBSTATS_PORT":               "8181",
		"JOBSTATS_PAGE_SIZE":          "50",
		"JOBSTATS_CALL_TIMEOUT":       "750ms",
		"JOBSTATS_DATA_ACCESS_ADDR":   "10.0.0.5:50051",
		"JOBSTATS_CORRELATION_POLICY": "zero_on_error",
		"JOBSTATS_LOG_LEVEL":          "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Defaults()
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, "postgres://db/jobs", cfg.Database.URL)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Engine.PageSize)
	assert.Equal(t, 750*time.Millisecond, cfg.Engine.CallTimeout.Std())
	assert.Equal(t, "10.0.0.5:50051", cfg.DataAccess.Addr)
	assert.Equal(t, "zero_on_error", cfg.Engine.CorrelationPolicy)
	assert.Equal(t, "info", cfg.Log.Level, "empty values do not override")
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := Defaults()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "JOBSTATS_PORT" {
			return "eighty", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOBSTATS_PORT")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "jobstats.yaml", "server:\n  port: 9090\n")
	t.Setenv("JOBSTATS_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Server.Port)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "zero page size", mutate: func(c *Config) { c.Engine.PageSize = 0 }, wantErr: "PageSize"},
		{name: "page size above service cap", mutate: func(c *Config) { c.Engine.PageSize = 6000 }, wantErr: "PageSize"},
		{name: "page size at service cap", mutate: func(c *Config) { c.Engine.PageSize = 5000 }},
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "Port"},
		{name: "unknown policy", mutate: func(c *Config) { c.Engine.CorrelationPolicy = "retry" }, wantErr: "CorrelationPolicy"},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "Format"},
		{name: "missing data access addr", mutate: func(c *Config) { c.DataAccess.Addr = "" }, wantErr: "Addr"},
		{name: "non-positive call timeout", mutate: func(c *Config) { c.Engine.CallTimeout = 0 }, wantErr: "call_timeout"},
		{name: "rate without burst", mutate: func(c *Config) { c.Server.RateBurst = 0 }, wantErr: "rate_burst"},
		{name: "rate limiting disabled", mutate: func(c *Config) { c.Server.RateLimit = 0; c.Server.RateBurst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
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
