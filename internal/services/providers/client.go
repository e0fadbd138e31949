package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/repono/internal/interfaces"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout for provider calls
	DefaultTimeout = 45 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 5

	// DefaultTemperature is the conservative completion temperature used
	// when the configuration does not set one
	DefaultTemperature = 0.7

	// DefaultMaxTokens bounds completion length when unset
	DefaultMaxTokens = 1024
)

// chatClient is a chat-completion client for OpenAI-compatible APIs. Both
// providers speak the same wire format; only the endpoint, credential and
// model defaults differ.
type chatClient struct {
	name         string
	baseURL      string
	apiKey       string
	defaultModel string
	temperature  float32
	maxTokens    int
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       arbor.ILogger
}

// ClientOption configures a provider client
type ClientOption func(*chatClient)

// WithBaseURL sets a custom base URL (used by tests to point at a fake)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *chatClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *chatClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *chatClient) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *chatClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *chatClient) {
		c.httpClient.Timeout = timeout
	}
}

func newChatClient(name, baseURL, apiKey, defaultModel string, temperature float32, maxTokens int, opts ...ClientOption) *chatClient {
	c := &chatClient{
		name:         name,
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultModel: defaultModel,
		temperature:  temperature,
		maxTokens:    maxTokens,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	if c.temperature <= 0 {
		c.temperature = DefaultTemperature
	}
	if c.maxTokens <= 0 {
		c.maxTokens = DefaultMaxTokens
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider name
func (c *chatClient) Name() string {
	return c.name
}

// DefaultModel returns the configured default model
func (c *chatClient) DefaultModel() string {
	return c.defaultModel
}

// CreateChatCompletion performs a chat-completion call. All failure modes
// (network, timeout, non-2xx, malformed body, missing choices) surface as a
// *ProviderError.
func (c *chatClient) CreateChatCompletion(ctx context.Context, request *interfaces.ChatRequest) (*interfaces.ChatCompletion, error) {
	if c.apiKey == "" {
		return nil, &ProviderError{
			Provider: c.name,
			Kind:     ErrorKindConfiguration,
			Message:  "API key not configured",
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{
			Provider: c.name,
			Kind:     ErrorKindNetwork,
			Message:  "rate limiter wait cancelled",
			Err:      err,
		}
	}

	// Apply model and sampling defaults
	req := *request
	if req.Model == "" {
		req.Model = c.defaultModel
	}
	if req.Temperature <= 0 {
		req.Temperature = c.temperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = c.maxTokens
	}

	body, err := json.Marshal(&req)
	if err != nil {
		return nil, &ProviderError{
			Provider: c.name,
			Kind:     ErrorKindMalformed,
			Message:  "failed to encode request",
			Err:      err,
		}
	}

	reqURL := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{
			Provider: c.name,
			Kind:     ErrorKindNetwork,
			Message:  "failed to create request",
			Err:      err,
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	if c.logger != nil {
		c.logger.Debug().
			Str("provider", c.name).
			Str("model", req.Model).
			Int("messages", len(req.Messages)).
			Msg("Chat completion request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{
			Provider: c.name,
			Kind:     ErrorKindNetwork,
			Message:  "failed to read response body",
			Err:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{
			Provider:   c.name,
			Kind:       ErrorKindHTTPStatus,
			StatusCode: resp.StatusCode,
			Message:    truncate(string(respBody), 500),
		}
	}

	var completion interfaces.ChatCompletion
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, &ProviderError{
			Provider: c.name,
			Kind:     ErrorKindMalformed,
			Message:  "failed to decode response body",
			Err:      err,
		}
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, &ProviderError{
			Provider: c.name,
			Kind:     ErrorKindMalformed,
			Message:  "response contained no choices with message content",
		}
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("provider", c.name).
			Str("completion_id", completion.ID).
			Int("total_tokens", completion.Usage.TotalTokens).
			Msg("Chat completion response")
	}

	return &completion, nil
}

// transportError maps a transport failure onto the provider error taxonomy
func (c *chatClient) transportError(err error) *ProviderError {
	kind := ErrorKindNetwork
	message := "request failed"

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = ErrorKindTimeout
		message = fmt.Sprintf("request timed out after %s", c.httpClient.Timeout)
	}

	return &ProviderError{
		Provider: c.name,
		Kind:     kind,
		Message:  message,
		Err:      err,
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
