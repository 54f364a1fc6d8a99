package llm

import (
	"context"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete sends one system + user prompt pair and returns the reply
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// CompletionRequest contains the input of a single chat completion
type CompletionRequest struct {
	System string
	Prompt string

	// JSON asks the provider for a JSON object response
	JSON bool

	// Model overrides the configured model
	Model string

	// MaxTokens overrides the configured response limit
	MaxTokens int

	// Temperature overrides the configured sampling temperature
	Temperature *float32
}

// CompletionResponse contains the reply text
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "openrouter", "ollama", ""
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Model name (provider-specific)
	Model string `mapstructure:"model" yaml:"model"`

	// APIKey for OpenAI/OpenRouter
	APIKey string `mapstructure:"api_key" yaml:"-"`

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`

	// Timeout for API requests in seconds
	Timeout int `mapstructure:"timeout" yaml:"timeout"`

	// MaxTokens caps the completion length. Zero leaves it to the model.
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float32 `mapstructure:"temperature" yaml:"temperature"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Model:       "",
		Timeout:     60,
		MaxTokens:   0,
		Temperature: 0,
	}
}

func (c Config) timeoutSeconds() int {
	if c.Timeout <= 0 {
		return 60
	}
	return c.Timeout
}

func (c Config) maxTokens(req CompletionRequest) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 0
}

func (c Config) temperature(req CompletionRequest) float32 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	return c.Temperature
}
