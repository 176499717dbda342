// Package config provides process configuration for the conversation state
// manager: token budgets, curation and compression policy, cleanup cadence,
// and the compression provider to use. Configuration is loaded once at
// startup, validated, and handed to the store by value; each new
// conversation receives its own snapshot of the compression settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "24h" parse directly.
type Duration time.Duration

// UnmarshalYAML parses a duration string such as "30m" or "24h".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Compression strategy names. These are the only strategies the compression
// service knows how to apply.
const (
	StrategySummarize = "summarize"
	StrategyTruncate  = "truncate"
	StrategySelective = "selective"
)

// Compression provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
	ProviderNone      = "none"
)

// CompressionConfig controls when and how conversation history is compacted.
type CompressionConfig struct {
	Enabled bool `yaml:"enabled"`
	// Threshold is the fraction of the token budget at which compression
	// triggers, in (0, 1].
	Threshold float64 `yaml:"threshold"`
	// Strategy is one of summarize, truncate, selective.
	Strategy string `yaml:"strategy"`
	// PreserveContext keeps the leading messages of a conversation intact
	// when summarizing.
	PreserveContext bool `yaml:"preserve_context"`
	// MaxCompressionRatio is the largest acceptable compressed/original size
	// ratio, in (0, 1]. Results above it are treated as a service error.
	MaxCompressionRatio float64 `yaml:"max_compression_ratio"`
}

// ProviderConfig selects the LLM backend used by the summarize strategy.
type ProviderConfig struct {
	// Name is one of openai, anthropic, gemini, ollama, or none for
	// degraded mode without a compression service.
	Name  string `yaml:"name"`
	Model string `yaml:"model,omitempty"`
	// Host applies to the ollama provider only.
	Host string `yaml:"host,omitempty"`
}

// Config is the process-wide configuration, read once at store construction.
type Config struct {
	// MaxTokens is the per-conversation token budget.
	MaxTokens int `yaml:"max_tokens"`
	// CurationEnabled filters structurally invalid items out of updates.
	CurationEnabled bool `yaml:"curation_enabled"`

	Compression CompressionConfig `yaml:"compression"`
	Provider    ProviderConfig    `yaml:"provider"`

	// HealthCheckInterval is the cadence of the periodic cleanup scheduler.
	HealthCheckInterval Duration `yaml:"health_check_interval"`

	// MetricsAddr is the listen address for the Prometheus endpoint;
	// empty disables it.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		MaxTokens:       100000,
		CurationEnabled: true,
		Compression: CompressionConfig{
			Enabled:             true,
			Threshold:           0.8,
			Strategy:            StrategySummarize,
			PreserveContext:     true,
			MaxCompressionRatio: 0.7,
		},
		Provider: ProviderConfig{
			Name: ProviderNone,
		},
		HealthCheckInterval: Duration(time.Hour),
		MetricsAddr:         "",
	}
}

// Load reads configuration from a YAML file, applying defaults for absent
// fields and validating the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the store cannot honor.
func (c *Config) Validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.Compression.Threshold <= 0 || c.Compression.Threshold > 1 {
		return fmt.Errorf("compression.threshold must be in (0, 1], got %v", c.Compression.Threshold)
	}
	if c.Compression.MaxCompressionRatio <= 0 || c.Compression.MaxCompressionRatio > 1 {
		return fmt.Errorf("compression.max_compression_ratio must be in (0, 1], got %v", c.Compression.MaxCompressionRatio)
	}
	switch c.Compression.Strategy {
	case StrategySummarize, StrategyTruncate, StrategySelective:
	default:
		return fmt.Errorf("unknown compression strategy %q", c.Compression.Strategy)
	}
	switch c.Provider.Name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderOllama, ProviderNone:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health_check_interval must be positive, got %v", c.HealthCheckInterval)
	}
	return nil
}
