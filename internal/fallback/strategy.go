package fallback

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Source tags and registered strategy names.
const (
	SourcePrimary = "primary"
	SourceHybrid  = "hybrid"

	NameExternal = "openai"
	NameTemplate = "rule_based"
	NameCached   = "cached_responses"
)

// Base confidences of the built-in strategies.
const (
	ExternalConfidence = 0.8
	TemplateConfidence = 0.5
	CachedConfidence   = 0.4

	// DefaultPrimaryConfidence is used when the primary model does not report one.
	DefaultPrimaryConfidence = 0.8
)

// MaxIdeaLength bounds the idea text accepted by Generate, in characters.
const MaxIdeaLength = 5000

// Request describes one agent call. It is not modified after construction.
type Request struct {
	AgentType string
	Idea      string
	Context   map[string]string
}

// Validate rejects requests that no strategy could serve.
func (r *Request) Validate() error {
	if r == nil {
		return &CallerInputError{Reason: "request is nil"}
	}
	if strings.TrimSpace(r.AgentType) == "" {
		return &CallerInputError{Field: "agent_type", Reason: "is required"}
	}
	if strings.TrimSpace(r.Idea) == "" {
		return &CallerInputError{Field: "idea", Reason: "is required"}
	}
	if utf8.RuneCountInString(r.Idea) > MaxIdeaLength {
		return &CallerInputError{Field: "idea", Reason: "is too long"}
	}
	return nil
}

// key identifies requests that would produce the same answer.
func (r *Request) key() string {
	var b strings.Builder
	b.WriteString(r.AgentType)
	b.WriteByte(0)
	b.WriteString(r.Idea)

	keys := make([]string, 0, len(r.Context))
	for k := range r.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Context[k])
	}
	return b.String()
}

// Answer is the content produced for one agent.
type Answer struct {
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
	Concerns        []string `json:"concerns"`
	Reasoning       string   `json:"reasoning"`
	SupportingData  string   `json:"supporting_data,omitempty"`

	// Confidence is what the producer reported, before any adjustment.
	Confidence float64 `json:"confidence_score"`
}

func (a *Answer) clone() *Answer {
	out := *a
	out.Recommendations = append([]string(nil), a.Recommendations...)
	out.Concerns = append([]string(nil), a.Concerns...)
	return &out
}

// Result is the outcome of a successful Generate call.
type Result struct {
	Answer     *Answer       `json:"answer"`
	Confidence float64       `json:"confidence_score"`
	Source     string        `json:"source"`
	Duration   time.Duration `json:"duration"`
}

// Degraded reports whether the answer came from anything but the primary model.
func (r *Result) Degraded() bool {
	return r.Source != SourcePrimary
}

// Generator produces an answer for a request. The primary model and the
// external fallback's secondary model both satisfy it.
type Generator interface {
	Generate(ctx context.Context, req *Request) (*Answer, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req *Request) (*Answer, error)

func (f GeneratorFunc) Generate(ctx context.Context, req *Request) (*Answer, error) {
	return f(ctx, req)
}

// Strategy produces a plausible answer without the primary model.
type Strategy interface {
	// IsAvailable is evaluated on every selection; it may depend on runtime config.
	IsAvailable() bool

	// BaseConfidence is the confidence before the degradation penalty.
	BaseConfidence() float64

	Generate(ctx context.Context, req *Request) (*Answer, error)
}
