package providers

import (
	"context"
	"time"
)

// Model is a single text-generation backend (Gemini, Anthropic, OpenAI)
type Model interface {
	// Name returns the provider name (e.g., "gemini", "anthropic", "openai")
	Name() string

	// Complete sends one prompt and returns the generated text
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a provider-neutral single-turn request
type CompletionRequest struct {
	// Model identifier; empty means the adapter default
	Model string `json:"model,omitempty"`

	// System carries the role instructions, when the provider supports them
	System string `json:"system,omitempty"`

	// Prompt is the user message
	Prompt string `json:"prompt"`

	// MaxTokens limits the response length
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness
	Temperature float64 `json:"temperature,omitempty"`

	// Metadata for tracking and logging
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CompletionResponse is the provider-neutral answer
type CompletionResponse struct {
	// Content is the generated text
	Content string `json:"content"`

	// Model that produced the content
	Model string `json:"model"`

	// Provider that handled the request
	Provider string `json:"provider"`

	// Usage statistics, when the provider reports them
	Usage Usage `json:"usage"`

	// Latency of the request
	Latency time.Duration `json:"latency"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override, used by tests)
	BaseURL string

	// Model is the default model identifier
	Model string

	// MaxTokens is the default response limit
	MaxTokens int

	// Temperature is the default sampling temperature
	Temperature float64

	// Timeout for requests
	Timeout time.Duration
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		MaxTokens:   500,
		Temperature: 0.3,
		Timeout:     30 * time.Second,
	}
}

// WithDefaults fills zero fields of req from the provider config
func (c ProviderConfig) WithDefaults(req *CompletionRequest) CompletionRequest {
	out := *req
	if out.Model == "" {
		out.Model = c.Model
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = c.MaxTokens
	}
	if out.Temperature == 0 {
		out.Temperature = c.Temperature
	}
	return out
}
