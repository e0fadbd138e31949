package providers

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
)

// ConfigSelector resolves the provider for a processing attempt from the
// use_grok configuration flag. Selection happens per call, not at process
// start, so tests can inject fakes and operators can flip the flag between
// restarts without touching any global state.
type ConfigSelector struct {
	useGrok   bool
	openai    interfaces.ProviderClient
	grok      interfaces.ProviderClient
	openaiKey string
	grokKey   string
	logger    arbor.ILogger
}

// NewConfigSelector builds both clients up front and picks between them at
// Select time
func NewConfigSelector(config *common.Config, logger arbor.ILogger) *ConfigSelector {
	return &ConfigSelector{
		useGrok:   config.LLM.UseGrok,
		openai:    NewOpenAIClient(&config.OpenAI, WithLogger(logger)),
		grok:      NewGrokClient(&config.Grok, WithLogger(logger)),
		openaiKey: config.OpenAI.APIKey,
		grokKey:   config.Grok.APIKey,
		logger:    logger,
	}
}

// Select returns the configured provider. A missing API key is a
// configuration failure surfaced before any provider call is attempted.
func (s *ConfigSelector) Select(ctx context.Context) (interfaces.ProviderClient, error) {
	if s.useGrok {
		if s.grokKey == "" {
			return nil, &ProviderError{
				Provider: ProviderGrok,
				Kind:     ErrorKindConfiguration,
				Message:  "Grok API key not configured (set grok.api_key or XAI_API_KEY)",
			}
		}
		return s.grok, nil
	}

	if s.openaiKey == "" {
		return nil, &ProviderError{
			Provider: ProviderOpenAI,
			Kind:     ErrorKindConfiguration,
			Message:  "OpenAI API key not configured (set openai.api_key or OPENAI_API_KEY)",
		}
	}
	return s.openai, nil
}

// StaticSelector always returns the same client (or error). Used by tests.
type StaticSelector struct {
	Client interfaces.ProviderClient
	Err    error
}

// Select implements interfaces.ProviderSelector
func (s *StaticSelector) Select(ctx context.Context) (interfaces.ProviderClient, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Client, nil
}
