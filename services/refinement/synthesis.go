package refinement

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/models"
	"github.com/upb/ai-product-council/services/agents"
)

const (
	maxKeyChanges     = 5
	maxUserStories    = 3
	maxTechnicalTasks = 5
	maxRisks          = 3
)

var (
	storyAgents = []string{agents.CustomerResearcher, agents.Designer, agents.ProductManager}
	taskAgents  = []string{agents.Engineer, agents.RiskAnalyst}

	defaultStories = []string{"As a user, I want a seamless experience, so that I can achieve my goals efficiently"}
	defaultTasks   = []string{"Implement responsive design", "Setup scalable backend"}
)

// AgentAnswer is what one council member returned.
type AgentAnswer struct {
	AgentType string
	Result    *fallback.Result
}

// Synthesize aggregates the council's answers, given in focus order, into a
// report. answers must not be empty.
func Synthesize(idea string, answers []AgentAnswer) *models.RefinedRequirement {
	byAgent := make(map[string]*fallback.Answer, len(answers))
	debate := make([]models.AgentFeedback, 0, len(answers))

	var (
		confidence float64
		concerns   int
		degraded   bool
	)
	for _, a := range answers {
		ans := a.Result.Answer
		byAgent[a.AgentType] = ans
		confidence += a.Result.Confidence
		concerns += len(ans.Concerns)
		degraded = degraded || a.Result.Degraded()

		debate = append(debate, models.AgentFeedback{
			AgentName:        a.AgentType,
			Feedback:         ans.Analysis,
			Recommendations:  ans.Recommendations,
			Concerns:         ans.Concerns,
			ProcessingTimeMs: a.Result.Duration.Milliseconds(),
			ConfidenceScore:  a.Result.Confidence,
			Source:           a.Result.Source,
		})
	}

	return &models.RefinedRequirement{
		RefinedRequirement: "AI-Refined: " + strings.TrimSpace(idea),
		KeyChangesSummary:  keyChanges(answers),
		UserStories:        userStories(byAgent),
		TechnicalTasks:     technicalTasks(byAgent),
		AgentDebate:        debate,
		PriorityScore:      priorityScore(confidence / float64(len(answers))),
		EstimatedEffort:    effort(concerns),
		RiskAssessment:     riskAssessment(answers, byAgent[agents.RiskAnalyst]),
		Degraded:           degraded,
	}
}

// keyChanges takes recommendations round-robin so every leading agent is heard.
func keyChanges(answers []AgentAnswer) []string {
	var out []string
	seen := make(map[string]bool)
	for round := 0; len(out) < maxKeyChanges; round++ {
		added := false
		for _, a := range answers {
			recs := a.Result.Answer.Recommendations
			if round >= len(recs) {
				continue
			}
			added = true
			key := strings.ToLower(recs[round])
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, recs[round])
			if len(out) == maxKeyChanges {
				break
			}
		}
		if !added {
			break
		}
	}
	return out
}

func userStories(byAgent map[string]*fallback.Answer) []string {
	var out []string
	for _, agent := range storyAgents {
		ans, ok := byAgent[agent]
		if !ok {
			continue
		}
		for _, rec := range ans.Recommendations {
			if len(out) == maxUserStories {
				return out
			}
			out = append(out, fmt.Sprintf("As a user, I want %s, so that the product solves my problem", sentenceFragment(rec)))
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultStories...)
	}
	return out
}

func technicalTasks(byAgent map[string]*fallback.Answer) []string {
	var out []string
	for _, agent := range taskAgents {
		ans, ok := byAgent[agent]
		if !ok {
			continue
		}
		for _, rec := range ans.Recommendations {
			if len(out) == maxTechnicalTasks {
				return out
			}
			out = append(out, rec)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultTasks...)
	}
	return out
}

// priorityScore maps a mean confidence in [0,1] onto 1..10.
func priorityScore(mean float64) int {
	score := int(math.Round(mean * 10))
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func effort(concerns int) string {
	switch {
	case concerns <= 3:
		return models.EffortSmall
	case concerns <= 6:
		return models.EffortMedium
	case concerns <= 9:
		return models.EffortLarge
	default:
		return models.EffortXL
	}
}

func riskAssessment(answers []AgentAnswer, risk *fallback.Answer) string {
	var risks []string
	seen := make(map[string]bool)
	for _, a := range answers {
		for _, c := range a.Result.Answer.Concerns {
			key := strings.ToLower(c)
			if seen[key] || len(risks) == maxRisks {
				continue
			}
			seen[key] = true
			risks = append(risks, strings.TrimRight(c, "."))
		}
	}
	if len(risks) == 0 {
		return "Low risk with proper planning"
	}

	mitigation := "MVP approach, user feedback loops"
	if risk != nil && len(risk.Recommendations) > 0 {
		mitigation = strings.TrimRight(risk.Recommendations[0], ".")
	}
	return fmt.Sprintf("Key risks: %s. Mitigation: %s.", strings.Join(risks, "; "), mitigation)
}

// sentenceFragment lowercases the first letter and drops the final period so
// a recommendation reads inside a sentence.
func sentenceFragment(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), ".")
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsUpper(r) {
		return s
	}
	// keep acronyms such as "API" or "MVP" intact
	if next, _ := utf8.DecodeRuneInString(s[size:]); unicode.IsUpper(next) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
