package agents

import (
	"fmt"
	"sort"
	"strings"
)

const answerFormat = `Return only a JSON object with these keys:
- "analysis": one or two sentences
- "recommendations": array of at most 3 short actions
- "concerns": array of at most 2 short risks
- "confidence_score": number between 0.0 and 1.0
- "reasoning": one sentence
- "supporting_data": short string or null`

// BuildPrompt renders the system and user prompt for one agent call.
func BuildPrompt(p Profile, idea string, context map[string]string) (system, prompt string) {
	system = fmt.Sprintf("ROLE: %s\nEXPERTISE: %s", p.Role, strings.Join(p.Expertise, ", "))

	var b strings.Builder
	fmt.Fprintf(&b, "TASK: %s.\n\n", p.Task)
	fmt.Fprintf(&b, "IDEA: %s\n", strings.TrimSpace(idea))
	fmt.Fprintf(&b, "CONTEXT: %s\n\n", formatContext(context))
	b.WriteString("RESPOND WITH:\n")
	for i, point := range p.RespondWith {
		fmt.Fprintf(&b, "%d. %s\n", i+1, point)
	}
	if p.Closing != "" {
		b.WriteString("\n")
		b.WriteString(p.Closing)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(answerFormat)

	return system, b.String()
}

func formatContext(context map[string]string) string {
	if len(context) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+context[k])
	}
	return strings.Join(parts, ", ")
}
