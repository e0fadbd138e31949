package interfaces

import (
	"context"
)

// ChatMessage is one message in a chat-completion conversation
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is a provider-agnostic chat-completion request
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatChoice is one candidate completion
type ChatChoice struct {
	Message ChatMessage `json:"message"`
}

// ChatUsage reports provider token accounting
type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletion is a provider-agnostic chat-completion response. A
// successful call carries at least one choice with message content.
type ChatCompletion struct {
	ID      string       `json:"id"`
	Choices []ChatChoice `json:"choices"`
	Usage   ChatUsage    `json:"usage"`
}

// ProviderClient is the single capability both completion providers expose.
// Callers must not special-case providers beyond model defaults.
type ProviderClient interface {
	CreateChatCompletion(ctx context.Context, request *ChatRequest) (*ChatCompletion, error)
	Name() string
	DefaultModel() string
}

// ProviderSelector resolves the provider to use for one processing attempt.
// Injected so tests can substitute fakes without process-wide state.
type ProviderSelector interface {
	Select(ctx context.Context) (ProviderClient, error)
}
