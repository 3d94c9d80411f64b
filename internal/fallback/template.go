package fallback

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
)

// TemplateStrategy answers from canned per-agent templates. It is always
// available. Options are chosen by hashing the idea, so the same idea gets
// the same answer.
type TemplateStrategy struct {
	catalog *Catalog
}

func NewTemplateStrategy(catalog *Catalog) *TemplateStrategy {
	return &TemplateStrategy{catalog: catalog}
}

func (s *TemplateStrategy) IsAvailable() bool { return s.catalog != nil }

func (s *TemplateStrategy) BaseConfidence() float64 { return TemplateConfidence }

func (s *TemplateStrategy) Generate(ctx context.Context, req *Request) (*Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var analysis, recs, concerns []string
	tpl := s.catalog.Templates[req.AgentType]

	for _, rule := range tpl.Rules {
		items := pick(rule.Options, rule.Pick, seed(req.AgentType, rule.Section, req.Idea))
		switch rule.Target {
		case TargetAnalysis:
			text := strings.Join(items, ", ")
			if rule.Label != "" {
				text = rule.Label + ": " + text
			}
			analysis = append(analysis, text)
		case TargetRecommendations:
			recs = append(recs, labelled(rule.Label, items)...)
		case TargetConcerns:
			concerns = append(concerns, labelled(rule.Label, items)...)
		}
	}

	reasoning := "Generated from rule-based templates"
	supporting := "general"
	if cat, _ := s.catalog.Classify(req.Idea); cat != nil {
		supporting = cat.Name
		reasoning = fmt.Sprintf("%s for the %s category", reasoning, cat.Label)
		if tpl.CategoryInsights {
			analysis = append(analysis, "Category: "+cat.Insights.MarketSize)
			recs = append(recs, cat.Insights.Recommendations)
		}
	}

	defaults := s.catalog.Defaults
	if len(analysis) == 0 {
		analysis = []string{strings.ReplaceAll(defaults.Analysis, "{agent}", req.AgentType)}
	}
	if len(recs) == 0 && defaults.Recommendation != "" {
		recs = []string{defaults.Recommendation}
	}
	if len(concerns) == 0 && defaults.Concern != "" {
		concerns = []string{defaults.Concern}
	}

	return &Answer{
		Analysis:        strings.Join(analysis, ". "),
		Recommendations: recs,
		Concerns:        concerns,
		Reasoning:       reasoning,
		SupportingData:  supporting,
		Confidence:      TemplateConfidence,
	}, nil
}

func labelled(label string, items []string) []string {
	if label == "" {
		return items
	}
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = label + ": " + item
	}
	return out
}

func seed(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// pick returns n consecutive options (wrapping) starting at a seeded offset.
func pick(options []string, n int, seed uint64) []string {
	if len(options) == 0 {
		return nil
	}
	if n <= 0 {
		n = 1
	}
	if n > len(options) {
		n = len(options)
	}
	start := int(seed % uint64(len(options)))
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = options[(start+i)%len(options)]
	}
	return out
}
