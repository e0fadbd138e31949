package common

// NewDefaultConfig returns a Config populated with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/repono",
				ResetOnStartup: false,
			},
		},
		Queue: QueueConfig{
			Concurrency: 4,
			BufferSize:  256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Reaper: ReaperConfig{
			Enabled:          true,
			Schedule:         "*/5 * * * *",
			ThresholdMinutes: 15,
		},
		OpenAI: OpenAIConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     "45s",
			RateLimit:   5,
		},
		Grok: GrokConfig{
			BaseURL:     "https://api.x.ai/v1",
			Model:       "grok-2-latest",
			Temperature: 0.7,
			MaxTokens:   1024,
			Timeout:     "45s",
			RateLimit:   5,
		},
		LLM: LLMConfig{
			UseGrok:        false,
			ResponseFormat: "markers",
		},
		Fetcher: FetcherConfig{
			Enabled:         true,
			Timeout:         "15s",
			MaxExcerptChars: 4000,
			UserAgent:       "repono/1.0 (+https://github.com/ternarybob/repono)",
		},
		Auth: AuthConfig{},
	}
}
