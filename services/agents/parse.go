package agents

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/upb/ai-product-council/internal/fallback"
)

const (
	maxRecommendations = 3
	maxConcerns        = 2
	summaryLength      = 200

	// HeuristicConfidence is reported for answers recovered from free text.
	HeuristicConfidence = 0.6
)

type rawAnswer struct {
	Analysis        json.RawMessage `json:"analysis"`
	Recommendations []string        `json:"recommendations"`
	Concerns        []string        `json:"concerns"`
	ConfidenceScore *float64        `json:"confidence_score"`
	Reasoning       string          `json:"reasoning"`
	SupportingData  json.RawMessage `json:"supporting_data"`
}

// ParseAnswer turns model output into an Answer. Output that carries a JSON
// object is read field by field; anything else becomes a heuristic answer
// with HeuristicConfidence.
func ParseAnswer(raw string) *fallback.Answer {
	if answer, ok := parseJSON(raw); ok {
		return answer
	}
	return heuristicAnswer(raw)
}

func parseJSON(raw string) (*fallback.Answer, bool) {
	start := strings.Index(raw, "{")
	if start < 0 {
		return nil, false
	}

	var ra rawAnswer
	dec := json.NewDecoder(strings.NewReader(raw[start:]))
	if err := dec.Decode(&ra); err != nil {
		return nil, false
	}

	answer := &fallback.Answer{
		Analysis:        flatten(ra.Analysis),
		Recommendations: trimList(ra.Recommendations, maxRecommendations),
		Concerns:        trimList(ra.Concerns, maxConcerns),
		Reasoning:       strings.TrimSpace(ra.Reasoning),
		SupportingData:  flatten(ra.SupportingData),
	}
	if answer.Analysis == "" && len(answer.Recommendations) == 0 {
		return nil, false
	}
	if ra.ConfidenceScore != nil && *ra.ConfidenceScore > 0 && *ra.ConfidenceScore <= 1 {
		answer.Confidence = *ra.ConfidenceScore
	}
	return answer, true
}

// flatten renders a JSON string, object or scalar as plain text.
func flatten(msg json.RawMessage) string {
	if len(msg) == 0 || string(msg) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(msg, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(msg, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if obj[k] == nil {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %v", k, obj[k]))
		}
		return strings.Join(parts, "; ")
	}

	return strings.TrimSpace(string(msg))
}

func trimList(items []string, limit int) []string {
	out := make([]string, 0, limit)
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

func heuristicAnswer(raw string) *fallback.Answer {
	text := strings.TrimSpace(raw)

	var recs []string
	for _, line := range strings.Split(text, "\n") {
		if item, ok := listItem(line); ok {
			recs = append(recs, item)
		}
	}
	recs = trimList(recs, maxRecommendations)
	if len(recs) == 0 {
		recs = []string{"Review analysis"}
	}

	return &fallback.Answer{
		Analysis:        truncate(text, summaryLength),
		Recommendations: recs,
		Concerns:        []string{"Verify details"},
		Reasoning:       "Parsed from unstructured model output",
		Confidence:      HeuristicConfidence,
	}
}

// listItem strips a bullet or number prefix ("- ", "* ", "2. ", "3) ").
func listItem(line string) (string, bool) {
	line = strings.TrimSpace(line)
	for _, prefix := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line[len(prefix):]), true
		}
	}

	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(line) && (line[i] == '.' || line[i] == ')') && line[i+1] == ' ' {
		return strings.TrimSpace(line[i+2:]), true
	}
	return "", false
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
