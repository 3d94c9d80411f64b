package fallback

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Rule targets.
const (
	TargetAnalysis        = "analysis"
	TargetRecommendations = "recommendations"
	TargetConcerns        = "concerns"
)

// Catalog is the canned content behind the template and cached strategies.
type Catalog struct {
	Categories      []Category                `yaml:"categories"`
	Defaults        TemplateDefaults          `yaml:"defaults"`
	Templates       map[string]AgentTemplate  `yaml:"templates"`
	CachedResponses map[string]CachedResponse `yaml:"cached_responses"`
}

// Category is a product category recognised by keywords.
type Category struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
	Insights Insights `yaml:"insights"`
}

// Insights are precomputed notes for a category.
type Insights struct {
	MarketSize      string `yaml:"market_size"`
	Competitors     string `yaml:"competitors"`
	Risks           string `yaml:"risks"`
	Recommendations string `yaml:"recommendations"`
}

type TemplateDefaults struct {
	Analysis       string `yaml:"analysis"`
	Recommendation string `yaml:"recommendation"`
	Concern        string `yaml:"concern"`
}

// AgentTemplate lists the rules applied for one agent type.
type AgentTemplate struct {
	CategoryInsights bool           `yaml:"category_insights"`
	Rules            []TemplateRule `yaml:"rules"`
}

// TemplateRule picks Pick options from a section into Target.
type TemplateRule struct {
	Section string   `yaml:"section"`
	Target  string   `yaml:"target"`
	Label   string   `yaml:"label,omitempty"`
	Pick    int      `yaml:"pick,omitempty"`
	Options []string `yaml:"options"`
}

// CachedResponse is a per-agent answer shape filled from category insights.
type CachedResponse struct {
	Analysis        string   `yaml:"analysis"`
	Recommendations []string `yaml:"recommendations"`
	Concerns        []string `yaml:"concerns"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file, or the embedded one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("catalog: category %d has no name", i)
		}
		if len(cat.Keywords) == 0 {
			return fmt.Errorf("catalog: category %s has no keywords", cat.Name)
		}
	}
	for agent, tpl := range c.Templates {
		for _, rule := range tpl.Rules {
			switch rule.Target {
			case TargetAnalysis, TargetRecommendations, TargetConcerns:
			default:
				return fmt.Errorf("catalog: %s.%s has unknown target %q", agent, rule.Section, rule.Target)
			}
			if len(rule.Options) == 0 {
				return fmt.Errorf("catalog: %s.%s has no options", agent, rule.Section)
			}
			if rule.Pick < 0 {
				return fmt.Errorf("catalog: %s.%s has negative pick", agent, rule.Section)
			}
		}
	}
	return nil
}

// Classify returns the best matching category and its keyword score, or nil
// when no keyword matches. Ties go to the category listed first.
func (c *Catalog) Classify(text string) (*Category, int) {
	words := tokenize(text)
	if len(words) == 0 {
		return nil, 0
	}
	joined := " " + strings.Join(words, " ") + " "

	var best *Category
	bestScore := 0
	for i := range c.Categories {
		score := 0
		for _, kw := range c.Categories[i].Keywords {
			if keywordMatches(strings.ToLower(kw), words, joined) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = &c.Categories[i], score
		}
	}
	return best, bestScore
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// keywordMatches does whole-word matching for phrases, and allows short
// suffixes ("apps", "platforms") for single keywords of three or more letters.
func keywordMatches(kw string, words []string, joined string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(joined, " "+kw+" ")
	}
	for _, w := range words {
		if w == kw {
			return true
		}
		if len(kw) >= 3 && strings.HasPrefix(w, kw) && len(w)-len(kw) <= 3 {
			return true
		}
	}
	return false
}
