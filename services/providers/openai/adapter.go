package openai

import (
	"context"
	"errors"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/upb/ai-product-council/services/providers"
)

const (
	providerName = "openai"
	defaultModel = "gpt-3.5-turbo"
)

// ErrCredentialMissing is returned when no API key is configured at call time
var ErrCredentialMissing = errors.New("openai api key not configured")

// OpenAIAdapter implements the Model interface for OpenAI chat completions
type OpenAIAdapter struct {
	config     providers.ProviderConfig
	credential *providers.Credential
	client     openaisdk.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter. The key is read from the
// credential on every call so it can be added or revoked at runtime.
func NewOpenAIAdapter(config providers.ProviderConfig, credential *providers.Credential) *OpenAIAdapter {
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.Temperature == 0 {
		config.Temperature = 0.3
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if credential == nil {
		credential = providers.NewCredential(config.APIKey)
	}

	opts := []option.RequestOption{
		option.WithMaxRetries(0),
		option.WithRequestTimeout(config.Timeout),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIAdapter{
		config:     config,
		credential: credential,
		client:     openaisdk.NewClient(opts...),
	}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return providerName
}

// Available reports whether an API key is currently configured
func (a *OpenAIAdapter) Available() bool {
	return a.credential.Present()
}

// Complete performs a chat completion request
func (a *OpenAIAdapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	key := a.credential.Get()
	if key == "" {
		return nil, providers.NewProviderError(providerName, providers.KindUnknown, 0, "credential missing", ErrCredentialMissing)
	}

	startTime := time.Now()
	r := a.config.WithDefaults(req)

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, 2)
	if r.System != "" {
		messages = append(messages, openaisdk.SystemMessage(r.System))
	}
	messages = append(messages, openaisdk.UserMessage(r.Prompt))

	resp, err := a.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(r.Model),
		Messages:    messages,
		MaxTokens:   openaisdk.Int(int64(r.MaxTokens)),
		Temperature: openaisdk.Float(r.Temperature),
	}, option.WithAPIKey(key))
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, providers.NewProviderError(providerName, providers.KindUnknown, 0, "no choices returned", nil)
	}

	return &providers.CompletionResponse{
		Content:  resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Provider: providerName,
		Usage: providers.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
		Latency: time.Since(startTime),
	}, nil
}

func classifyError(err error) error {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		body := strings.Join([]string{apiErr.Code, apiErr.Type, apiErr.Message, apiErr.RawJSON()}, " ")
		return providers.NewProviderError(
			providerName,
			providers.KindFromStatus(apiErr.StatusCode, body),
			apiErr.StatusCode,
			strings.TrimSpace(apiErr.Message),
			err,
		)
	}
	return providers.Classify(providerName, err)
}
