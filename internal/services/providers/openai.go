package providers

import (
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
)

// ProviderOpenAI is the provider name used in logs and error details
const ProviderOpenAI = "openai"

// NewOpenAIClient creates a chat-completion client for the OpenAI API
func NewOpenAIClient(config *common.OpenAIConfig, opts ...ClientOption) interfaces.ProviderClient {
	base := []ClientOption{
		WithTimeout(common.ProviderTimeout(config.Timeout)),
	}
	if config.RateLimit > 0 {
		base = append(base, WithRateLimit(config.RateLimit))
	}

	c := newChatClient(
		ProviderOpenAI,
		config.BaseURL,
		config.APIKey,
		config.Model,
		config.Temperature,
		config.MaxTokens,
		append(base, opts...)...,
	)
	return c
}
