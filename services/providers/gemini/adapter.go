package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/upb/ai-product-council/services/providers"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-1.5-flash"
)

// GeminiAdapter implements the Model interface for the Gemini API
type GeminiAdapter struct {
	config providers.ProviderConfig
	client *genai.Client
}

// NewGeminiAdapter creates a new Gemini adapter
func NewGeminiAdapter(ctx context.Context, config providers.ProviderConfig) (*GeminiAdapter, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
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

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiAdapter{config: config, client: client}, nil
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return providerName
}

// Complete sends the prompt to Gemini and concatenates the text parts of the first candidate
func (a *GeminiAdapter) Complete(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	startTime := time.Now()
	r := a.config.WithDefaults(req)

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(r.Temperature)),
		MaxOutputTokens: int32(r.MaxTokens),
	}
	if r.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(r.System, genai.RoleUser)
	}

	resp, err := a.client.Models.GenerateContent(ctx, r.Model, genai.Text(r.Prompt), genConfig)
	if err != nil {
		return nil, classifyError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, providers.NewProviderError(providerName, providers.KindUnknown, 0, "no candidates returned", nil)
	}

	var content strings.Builder
	if resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				content.WriteString(part.Text)
			}
		}
	}

	out := &providers.CompletionResponse{
		Content:  content.String(),
		Model:    r.Model,
		Provider: providerName,
		Latency:  time.Since(startTime),
	}
	if resp.UsageMetadata != nil {
		out.Usage = providers.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}

func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fromAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return fromAPIError(*apiErrPtr, err)
	}
	return providers.Classify(providerName, err)
}

func fromAPIError(apiErr genai.APIError, cause error) error {
	body := apiErr.Status + " " + apiErr.Message
	return providers.NewProviderError(
		providerName,
		providers.KindFromStatus(apiErr.Code, body),
		apiErr.Code,
		apiErr.Message,
		cause,
	)
}
