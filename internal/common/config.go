package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Queue       QueueConfig   `toml:"queue"`
	Logging     LoggingConfig `toml:"logging"`
	Reaper      ReaperConfig  `toml:"reaper"`
	OpenAI      OpenAIConfig  `toml:"openai"`
	Grok        GrokConfig    `toml:"grok"`
	LLM         LLMConfig     `toml:"llm"`
	Fetcher     FetcherConfig `toml:"fetcher"`
	Auth        AuthConfig    `toml:"auth"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// QueueConfig controls the in-process job queue consumed by the worker pool
type QueueConfig struct {
	Concurrency int `toml:"concurrency"` // Number of concurrent pipeline workers
	BufferSize  int `toml:"buffer_size"` // Queued jobs before Enqueue rejects (backpressure)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ReaperConfig controls stuck-job cleanup
type ReaperConfig struct {
	Enabled          bool   `toml:"enabled"`
	Schedule         string `toml:"schedule"`          // Cron schedule format (default: every 5 minutes)
	ThresholdMinutes int    `toml:"threshold_minutes"` // Pending older than this is considered stuck
}

// OpenAIConfig contains OpenAI chat-completion API configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"` // default: https://api.openai.com/v1
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`    // duration string, default "45s"
	RateLimit   int     `toml:"rate_limit"` // requests per second
}

// GrokConfig contains xAI Grok chat-completion API configuration
type GrokConfig struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"` // default: https://api.x.ai/v1
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	RateLimit   int     `toml:"rate_limit"`
}

// LLMConfig selects which provider the pipeline uses and the reply shape it
// asks for
type LLMConfig struct {
	UseGrok bool `toml:"use_grok"` // true routes processing to Grok, false to OpenAI
	// ResponseFormat is "markers" (Title:/Summary:/Tags: text contract) or
	// "json" (single JSON object including key_points)
	ResponseFormat string `toml:"response_format"`
}

// FetcherConfig controls the optional page prefetch used to enrich prompts
type FetcherConfig struct {
	Enabled         bool   `toml:"enabled"`
	Timeout         string `toml:"timeout"`           // duration string, default "15s"
	MaxExcerptChars int    `toml:"max_excerpt_chars"` // markdown excerpt cap for the prompt
	UserAgent       string `toml:"user_agent"`
}

// AuthConfig seeds a bootstrap credential so the service is usable before
// any keys exist
type AuthConfig struct {
	BootstrapAPIKey  string `toml:"bootstrap_api_key"`
	BootstrapAccount string `toml:"bootstrap_account"`
}

// ProviderTimeout parses a provider timeout string, falling back to 45s
func ProviderTimeout(value string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return 45 * time.Second
}

// LoadFromFiles loads configuration with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REPONO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("REPONO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("REPONO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("REPONO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if concurrency := os.Getenv("REPONO_QUEUE_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Queue.Concurrency = c
		}
	}

	if level := os.Getenv("REPONO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("REPONO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if key := os.Getenv("REPONO_OPENAI_API_KEY"); key != "" {
		config.OpenAI.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && config.OpenAI.APIKey == "" {
		config.OpenAI.APIKey = key
	}
	if key := os.Getenv("REPONO_GROK_API_KEY"); key != "" {
		config.Grok.APIKey = key
	}
	if key := os.Getenv("XAI_API_KEY"); key != "" && config.Grok.APIKey == "" {
		config.Grok.APIKey = key
	}

	if useGrok := os.Getenv("REPONO_USE_GROK"); useGrok != "" {
		if ug, err := strconv.ParseBool(useGrok); err == nil {
			config.LLM.UseGrok = ug
		}
	}

	if threshold := os.Getenv("REPONO_REAPER_THRESHOLD_MINUTES"); threshold != "" {
		if t, err := strconv.Atoi(threshold); err == nil {
			config.Reaper.ThresholdMinutes = t
		}
	}

	if bootstrapKey := os.Getenv("REPONO_BOOTSTRAP_API_KEY"); bootstrapKey != "" {
		config.Auth.BootstrapAPIKey = bootstrapKey
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
// (highest priority, applied after files and environment)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
