package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100000, cfg.MaxTokens)
	assert.True(t, cfg.CurationEnabled)
	assert.Equal(t, StrategySummarize, cfg.Compression.Strategy)
	assert.Equal(t, ProviderNone, cfg.Provider.Name)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parley.yaml")
	raw := `
max_tokens: 50000
curation_enabled: false
compression:
  enabled: true
  threshold: 0.9
  strategy: truncate
  preserve_context: false
  max_compression_ratio: 0.5
provider:
  name: ollama
  model: llama3.2
  host: http://localhost:11434
health_check_interval: 30m
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50000, cfg.MaxTokens)
	assert.False(t, cfg.CurationEnabled)
	assert.Equal(t, 0.9, cfg.Compression.Threshold)
	assert.Equal(t, StrategyTruncate, cfg.Compression.Strategy)
	assert.Equal(t, ProviderOllama, cfg.Provider.Name)
	assert.Equal(t, 30*time.Minute, cfg.HealthCheckInterval.Std())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }},
		{"threshold over one", func(c *Config) { c.Compression.Threshold = 1.5 }},
		{"threshold zero", func(c *Config) { c.Compression.Threshold = 0 }},
		{"ratio zero", func(c *Config) { c.Compression.MaxCompressionRatio = 0 }},
		{"bad strategy", func(c *Config) { c.Compression.Strategy = "shrink" }},
		{"bad provider", func(c *Config) { c.Provider.Name = "watson" }},
		{"zero interval", func(c *Config) { c.HealthCheckInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")

	s := NewSecrets()
	s.Set("OPENAI_API_KEY", "sk-test-123")
	s.Set("ANTHROPIC_API_KEY", "ak-test-456")
	require.NoError(t, s.SaveEncrypted(path, "hunter2"))

	loaded, err := LoadEncrypted(path, "hunter2")
	require.NoError(t, err)

	got, err := loaded.Get("OPENAI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk-test-123", got)

	key, err := loaded.APIKeyFor(ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, "ak-test-456", key)
}

func TestSecretsWrongPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")
	s := NewSecrets()
	s.Set("OPENAI_API_KEY", "sk-test")
	require.NoError(t, s.SaveEncrypted(path, "correct"))

	_, err := LoadEncrypted(path, "wrong")
	assert.Error(t, err)
}

func TestSecretsEnvFallback(t *testing.T) {
	t.Setenv("PARLEY_TEST_SECRET", "from-env")
	s := NewSecrets()
	got, err := s.Get("PARLEY_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	_, err = s.Get("PARLEY_TEST_MISSING")
	assert.Error(t, err)
}
