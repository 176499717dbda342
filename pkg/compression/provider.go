package compression

import (
	"fmt"

	"parley/pkg/config"
	"parley/pkg/llm"
	"parley/pkg/llm/anthropic"
	"parley/pkg/llm/gemini"
	"parley/pkg/llm/ollama"
	"parley/pkg/llm/openai"
)

// NewServiceFromConfig builds the compression service selected by the
// process configuration. A nil service (with nil error) means the provider
// is "none" and the store should run degraded.
func NewServiceFromConfig(cfg *config.Config, secrets *config.Secrets) (Service, error) {
	if cfg.Provider.Name == config.ProviderNone {
		return nil, nil
	}

	client, err := newClient(&cfg.Provider, secrets)
	if err != nil {
		return nil, err
	}

	counter, err := NewTokenCounter()
	if err != nil {
		return nil, err
	}

	return NewSummarizer(client, counter,
		cfg.Compression.PreserveContext,
		cfg.Compression.MaxCompressionRatio), nil
}

func newClient(pc *config.ProviderConfig, secrets *config.Secrets) (llm.Client, error) {
	switch pc.Name {
	case config.ProviderOllama:
		// Local runtime, no API key.
		return ollama.New(pc.Host, pc.Model), nil
	case config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderGemini:
		key, err := secrets.APIKeyFor(pc.Name)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		switch pc.Name {
		case config.ProviderOpenAI:
			return openai.New(key, pc.Model), nil
		case config.ProviderAnthropic:
			return anthropic.New(key, pc.Model), nil
		default:
			return gemini.New(key, pc.Model), nil
		}
	default:
		return nil, fmt.Errorf("unknown provider %q", pc.Name)
	}
}
