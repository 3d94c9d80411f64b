package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/internal/tokens"
	"github.com/upb/ai-product-council/services/providers"
)

// AnalystConfig controls how an Analyst calls its model.
type AnalystConfig struct {
	// ModelName is used for token estimates; empty uses the adapter default.
	ModelName   string
	MaxTokens   int
	Temperature float64
}

// Analyst runs council prompts against a text model. It implements
// fallback.Generator, so it serves as the primary model and as the
// secondary model behind the external fallback.
type Analyst struct {
	model   providers.Model
	config  AnalystConfig
	counter *tokens.Counter
	logger  *zap.Logger
}

// NewAnalyst creates an analyst over model
func NewAnalyst(model providers.Model, config AnalystConfig, counter *tokens.Counter, logger *zap.Logger) *Analyst {
	if counter == nil {
		counter = tokens.NewCounter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{
		model:   model,
		config:  config,
		counter: counter,
		logger:  logger,
	}
}

// Provider returns the name of the underlying model provider
func (a *Analyst) Provider() string {
	return a.model.Name()
}

// Generate implements fallback.Generator
func (a *Analyst) Generate(ctx context.Context, req *fallback.Request) (*fallback.Answer, error) {
	profile, ok := Lookup(req.AgentType)
	if !ok {
		return nil, providers.NewProviderError(a.model.Name(), providers.KindInvalidRequest, 0,
			fmt.Sprintf("unknown agent type %q", req.AgentType), nil)
	}

	system, prompt := BuildPrompt(profile, req.Idea, req.Context)

	a.logger.Debug("running agent prompt",
		zap.String("agent_type", req.AgentType),
		zap.String("provider", a.model.Name()),
		zap.Int("prompt_tokens", a.counter.Count(a.config.ModelName, system+"\n"+prompt)))

	start := time.Now()
	resp, err := a.model.Complete(ctx, &providers.CompletionRequest{
		Model:       a.config.ModelName,
		System:      system,
		Prompt:      prompt,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
		Metadata:    map[string]string{"agent_type": req.AgentType},
	})
	if err != nil {
		return nil, providers.Classify(a.model.Name(), err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, providers.NewProviderError(a.model.Name(), providers.KindUnknown, 0, "empty completion", nil)
	}

	answer := ParseAnswer(resp.Content)

	a.logger.Debug("agent prompt completed",
		zap.String("agent_type", req.AgentType),
		zap.String("model", resp.Model),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)))

	return answer, nil
}
