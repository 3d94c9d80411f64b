package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/upb/ai-product-council/services/providers"
)

const (
	providerName = "anthropic"
	defaultModel = "claude-3-5-haiku-latest"
)

// AnthropicAdapter implements the Model interface for Claude models
type AnthropicAdapter struct {
	config providers.ProviderConfig
	client anthropicsdk.Client
}

// NewAnthropicAdapter creates a new Anthropic adapter
func NewAnthropicAdapter(config providers.ProviderConfig) (*AnthropicAdapter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}

	return &AnthropicAdapter{
		config: config,
		client: anthropicsdk.NewClient(opts...),
	}, nil
}

// Name returns the provider name
func (a *AnthropicAdapter) Name() string {
	return providerName
}

// Complete sends the prompt to Claude and joins the text blocks of the reply
func (a *AnthropicAdapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	startTime := time.Now()
	r := a.config.WithDefaults(req)

	params := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(r.Model),
		MaxTokens:   int64(r.MaxTokens),
		Temperature: anthropicsdk.Float(r.Temperature),
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(r.Prompt)),
		},
	}
	if r.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: r.System}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	return &providers.CompletionResponse{
		Content:  content.String(),
		Model:    string(resp.Model),
		Provider: providerName,
		Usage: providers.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
		Latency: time.Since(startTime),
	}, nil
}

func classifyError(err error) error {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return providers.NewProviderError(
			providerName,
			providers.KindFromStatus(apiErr.StatusCode, apiErr.RawJSON()),
			apiErr.StatusCode,
			"messages request failed",
			err,
		)
	}
	return providers.Classify(providerName, err)
}
