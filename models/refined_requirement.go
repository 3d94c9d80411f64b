package models

// Effort buckets, derived from how many concerns the council raised
const (
	EffortSmall  = "Small"
	EffortMedium = "Medium"
	EffortLarge  = "Large"
	EffortXL     = "XL"
)

// AgentFeedback is one council member's contribution to a refinement
type AgentFeedback struct {
	AgentName        string   `json:"agent_name"`
	Feedback         string   `json:"feedback"`
	Recommendations  []string `json:"recommendations"`
	Concerns         []string `json:"concerns"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	ConfidenceScore  float64  `json:"confidence_score"`

	// Source is "primary", the fallback strategy name, or "hybrid"
	Source string `json:"source"`
}

// RefinedRequirement is the synthesized council report
type RefinedRequirement struct {
	RefinedRequirement string          `json:"refined_requirement"`
	KeyChangesSummary  []string        `json:"key_changes_summary"`
	UserStories        []string        `json:"user_stories"`
	TechnicalTasks     []string        `json:"technical_tasks"`
	AgentDebate        []AgentFeedback `json:"agent_debate"`
	PriorityScore      int             `json:"priority_score"`
	EstimatedEffort    string          `json:"estimated_effort"`
	RiskAssessment     string          `json:"risk_assessment"`

	// Degraded is set when any agent was answered by a fallback
	Degraded bool `json:"degraded"`
}
