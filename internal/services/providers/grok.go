package providers

import (
	"github.com/ternarybob/repono/internal/common"
	"github.com/ternarybob/repono/internal/interfaces"
)

// ProviderGrok is the provider name used in logs and error details
const ProviderGrok = "grok"

// NewGrokClient creates a chat-completion client for the xAI Grok API.
// Grok exposes the same chat-completion wire format as OpenAI, so the shared
// client is reused with different endpoint, credential and model defaults.
func NewGrokClient(config *common.GrokConfig, opts ...ClientOption) interfaces.ProviderClient {
	base := []ClientOption{
		WithTimeout(common.ProviderTimeout(config.Timeout)),
	}
	if config.RateLimit > 0 {
		base = append(base, WithRateLimit(config.RateLimit))
	}

	c := newChatClient(
		ProviderGrok,
		config.BaseURL,
		config.APIKey,
		config.Model,
		config.Temperature,
		config.MaxTokens,
		append(base, opts...)...,
	)
	return c
}
