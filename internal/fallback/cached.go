package fallback

import (
	"context"
	"strings"
)

// CachedStrategy answers from precomputed insights of a matched product
// category. When nothing matches it returns ErrNotApplicable instead of a
// poor guess.
type CachedStrategy struct {
	catalog *Catalog
}

func NewCachedStrategy(catalog *Catalog) *CachedStrategy {
	return &CachedStrategy{catalog: catalog}
}

func (s *CachedStrategy) IsAvailable() bool { return s.catalog != nil }

func (s *CachedStrategy) BaseConfidence() float64 { return CachedConfidence }

func (s *CachedStrategy) Generate(ctx context.Context, req *Request) (*Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cat, _ := s.catalog.Classify(req.Idea)
	if cat == nil {
		return nil, ErrNotApplicable
	}

	shape, ok := s.catalog.CachedResponses[req.AgentType]
	if !ok {
		shape, ok = s.catalog.CachedResponses["default"]
	}
	if !ok {
		return nil, ErrNotApplicable
	}

	label := cat.Label
	if label == "" {
		label = cat.Name
	}
	r := strings.NewReplacer(
		"{category}", cat.Name,
		"{label}", label,
		"{market_size}", cat.Insights.MarketSize,
		"{competitors}", cat.Insights.Competitors,
		"{risks}", cat.Insights.Risks,
		"{recommendations}", cat.Insights.Recommendations,
	)

	return &Answer{
		Analysis:        r.Replace(shape.Analysis),
		Recommendations: replaceAll(r, shape.Recommendations),
		Concerns:        replaceAll(r, shape.Concerns),
		Reasoning:       "Generated from cached pattern: " + cat.Name,
		SupportingData:  cat.Name,
		Confidence:      CachedConfidence,
	}, nil
}

func replaceAll(r *strings.Replacer, in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := r.Replace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}
