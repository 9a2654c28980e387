package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, 8, cfg.Engagement.MaxTurns)
	assert.Equal(t, 6, cfg.Engagement.MinTurns)
	assert.Equal(t, 3, cfg.Engagement.HighValueCategories)
	assert.Equal(t, 4, cfg.Engagement.SaturationThreshold)
	assert.Equal(t, HistoryLoadOnce, cfg.Engagement.HistoryMode)
	assert.Equal(t, 30, cfg.Governor.RequestsPerMinute)
	assert.Equal(t, "openai", cfg.Generator.Provider)
	require.NotNil(t, cfg.Generator.Temperature)
	assert.InDelta(t, 0.78, *cfg.Generator.Temperature, 1e-9)
	assert.Equal(t, "sqlite", cfg.Archive.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
server:
  port: 9999
  bind: lan
  apiKey: partner-key
engagement:
  maxTurns: 10
generator:
  provider: ollama
  model: llama3
  endpoint: http://localhost:11434
  fallbacks: [mock]
callback:
  url: https://partner.example/callback
events:
  natsUrl: nats://localhost:4222
archive:
  driver: none
logging:
  level: debug
  consoleStyle: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "lan", cfg.Server.Bind)
	assert.Equal(t, "partner-key", cfg.Server.APIKey)
	assert.Equal(t, 10, cfg.Engagement.MaxTurns)
	assert.Equal(t, 6, cfg.Engagement.MinTurns, "unset fields keep defaults")
	assert.Equal(t, "ollama", cfg.Generator.Provider)
	assert.Equal(t, []string{"mock"}, cfg.Generator.Fallbacks)
	assert.Equal(t, "https://partner.example/callback", cfg.Callback.URL)
	assert.Equal(t, "nats://localhost:4222", cfg.Events.NATSURL)
	assert.Equal(t, "honeypot.engagement.ended", cfg.Events.Subject)
	assert.Equal(t, "none", cfg.Archive.Driver)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)
	assert.Empty(t, Validate(&cfg))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadExpandsSecrets(t *testing.T) {
	t.Setenv("TEST_GROQ_KEY", "gsk-from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("generator:\n  apiKey: ${TEST_GROQ_KEY}\n  model: m\nserver:\n  apiKey: ${TEST_UNSET_VAR}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gsk-from-env", cfg.Generator.APIKey)
	assert.Equal(t, "${TEST_UNSET_VAR}", cfg.Server.APIKey)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HONEYPOT_PORT", "9090")
	t.Setenv("HONEYPOT_MAX_TURNS", "12")
	t.Setenv("HONEYPOT_RPM", "20")
	t.Setenv("HONEYPOT_LOG_LEVEL", "DEBUG")
	t.Setenv("HONEYPOT_GENERATOR_PROVIDER", "claude")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Engagement.MaxTurns)
	assert.Equal(t, 20, cfg.Governor.RequestsPerMinute)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "claude", cfg.Generator.Provider)
}

func TestRawRoundTripThroughPaths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	segs, err := ParseConfigPath("engagement.maxTurns")
	require.NoError(t, err)
	SetValueAtPath(raw, segs, 9)
	require.NoError(t, SaveRaw(path, raw))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Engagement.MaxTurns)
}
