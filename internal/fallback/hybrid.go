package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	hybridAnalyses        = 2
	hybridRecommendations = 3
	hybridConcerns        = 2
)

// Hybrid merges the answers of several strategies. Its confidence is the mean
// of the contributors' penalized confidences, reported on Answer.Confidence.
type Hybrid struct {
	components []Entry
	factor     float64
	maxSources int
}

func newHybrid(components []Entry, factor float64, maxSources int) *Hybrid {
	return &Hybrid{components: components, factor: factor, maxSources: maxSources}
}

// Components returns the names of the wrapped strategies in order.
func (h *Hybrid) Components() []string {
	names := make([]string, len(h.components))
	for i, c := range h.components {
		names[i] = c.Name
	}
	return names
}

func (h *Hybrid) available() []Entry {
	var out []Entry
	for _, c := range h.components {
		if c.Strategy.IsAvailable() {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hybrid) IsAvailable() bool {
	return len(h.available()) >= 2
}

// BaseConfidence is the mean base confidence of the available components.
func (h *Hybrid) BaseConfidence() float64 {
	avail := h.available()
	if len(avail) == 0 {
		return 0
	}
	var sum float64
	for _, c := range avail {
		sum += c.Strategy.BaseConfidence()
	}
	return sum / float64(len(avail))
}

type hybridPart struct {
	name   string
	answer *Answer
	score  float64
	err    error
}

func (h *Hybrid) Generate(ctx context.Context, req *Request) (*Answer, error) {
	sources := h.available()
	if h.maxSources > 0 && len(sources) > h.maxSources {
		sources = sources[:h.maxSources]
	}
	if len(sources) == 0 {
		return nil, ErrFallbackUnavailable
	}

	parts := make([]hybridPart, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Entry) {
			defer wg.Done()
			answer, err := src.Strategy.Generate(ctx, req)
			parts[i] = hybridPart{
				name:   src.Name,
				answer: answer,
				score:  src.Strategy.BaseConfidence() * h.factor,
				err:    err,
			}
		}(i, src)
	}
	wg.Wait()

	var (
		ok   []hybridPart
		errs []error
	)
	for _, p := range parts {
		if p.err != nil || p.answer == nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.name, p.err))
			continue
		}
		ok = append(ok, p)
	}
	if len(ok) == 0 {
		return nil, fmt.Errorf("no hybrid source produced an answer: %w", errors.Join(errs...))
	}

	return merge(ok), nil
}

func merge(parts []hybridPart) *Answer {
	var (
		analyses []string
		recs     []string
		concerns []string
		names    []string
		sum      float64
	)
	for _, p := range parts {
		names = append(names, p.name)
		sum += p.score
		if len(analyses) < hybridAnalyses && p.answer.Analysis != "" {
			analyses = append(analyses, strings.TrimSuffix(strings.TrimSpace(p.answer.Analysis), "."))
		}
		recs = appendUnique(recs, p.answer.Recommendations, hybridRecommendations)
		concerns = appendUnique(concerns, p.answer.Concerns, hybridConcerns)
	}

	analysis := strings.Join(analyses, ". ")
	if analysis != "" {
		analysis += "."
	}

	return &Answer{
		Analysis:        analysis,
		Recommendations: recs,
		Concerns:        concerns,
		Reasoning:       fmt.Sprintf("Combined from %d fallback sources: %s", len(parts), strings.Join(names, ", ")),
		SupportingData:  strings.Join(names, ","),
		Confidence:      sum / float64(len(parts)),
	}
}

// appendUnique appends items not already present until dst holds limit entries.
func appendUnique(dst, items []string, limit int) []string {
	for _, item := range items {
		if len(dst) >= limit {
			break
		}
		dup := false
		for _, existing := range dst {
			if existing == item {
				dup = true
				break
			}
		}
		if !dup && item != "" {
			dst = append(dst, item)
		}
	}
	return dst
}
