// Package agents defines the six council roles and adapts text models to
// the fallback Generator interface.
package agents

// Agent types, in the order the council runs them by default.
const (
	ProductManager     = "product_manager"
	Engineer           = "engineer"
	Designer           = "designer"
	MarketResearcher   = "market_researcher"
	RiskAnalyst        = "risk_analyst"
	CustomerResearcher = "customer_researcher"
)

// Profile describes how one council role is prompted.
type Profile struct {
	Type        string
	Name        string
	Role        string
	Task        string
	Expertise   []string
	RespondWith []string
	Closing     string
}

var profiles = []Profile{
	{
		Type: ProductManager,
		Name: "Product Manager",
		Role: "Senior Product Manager",
		Task: "Evaluate this product idea in 2-3 sentences",
		Expertise: []string{
			"Product Strategy", "Feature Prioritization", "MVP Planning", "Success Metrics",
		},
		RespondWith: []string{
			"Product-market fit score (1-10)",
			"Top 3 must-have features",
			"MVP timeline estimate",
			"Key success metric",
		},
		Closing: "Keep each point brief. Focus on execution.",
	},
	{
		Type: Engineer,
		Name: "Engineer",
		Role: "Senior Software Engineer",
		Task: "Assess technical feasibility in 2-3 sentences",
		Expertise: []string{
			"Technical Architecture", "System Design", "Development Planning", "Technology Selection",
		},
		RespondWith: []string{
			"Technical complexity (Low/Medium/High)",
			"Recommended tech stack (5 words max)",
			"Key technical challenge (5 words max)",
			"Development timeline (weeks/months)",
		},
		Closing: "Focus on implementation. Be realistic.",
	},
	{
		Type: Designer,
		Name: "Designer",
		Role: "UX/UI Design Expert",
		Task: "Evaluate design needs for this product in 2-3 sentences",
		Expertise: []string{
			"UX Design", "UI Design", "User Research", "Design Principles",
		},
		RespondWith: []string{
			"Key design challenge (5 words max)",
			"Primary user interface element (5 words max)",
			"Design principle to follow (5 words max)",
			"One UX improvement (10 words max)",
		},
		Closing: "Focus on user experience. Be specific.",
	},
	{
		Type: MarketResearcher,
		Name: "Market Researcher",
		Role: "Senior Market Research Analyst",
		Task: "Analyze this product idea in 2-3 sentences max",
		Expertise: []string{
			"Market Sizing", "Competitive Analysis", "Risk Assessment", "Strategic Recommendations",
		},
		RespondWith: []string{
			"Market size estimate (one number/range)",
			"Top 2 competitors",
			"Key market risk",
			"One actionable recommendation",
		},
		Closing: "Keep each point to 10 words or less. Be direct and specific.",
	},
	{
		Type: RiskAnalyst,
		Name: "Risk Analyst",
		Role: "Risk Management Expert",
		Task: "Assess risks for this product in 2-3 sentences",
		Expertise: []string{
			"Risk Assessment", "Mitigation Planning", "Probability Analysis", "Risk Scoring",
		},
		RespondWith: []string{
			"Highest risk factor (5 words max)",
			"Risk probability (Low/Medium/High)",
			"Mitigation strategy (10 words max)",
			"Risk score (1-10)",
		},
		Closing: "Be direct. Focus on actionable risks.",
	},
	{
		Type: CustomerResearcher,
		Name: "Customer Researcher",
		Role: "Customer Research Expert",
		Task: "Analyze customer needs for this product in 2-3 sentences",
		Expertise: []string{
			"Customer Pain Points", "User Research", "Customer Segmentation", "Acquisition Strategy",
		},
		RespondWith: []string{
			"Primary customer pain point (5 words max)",
			"Target customer segment (5 words max)",
			"Key customer need (5 words max)",
			"One customer acquisition insight (10 words max)",
		},
		Closing: "Be specific and actionable. No fluff.",
	},
}

// Profiles returns all council roles in default order.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Types returns the agent type identifiers in default order.
func Types() []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Type
	}
	return out
}

// Lookup finds the profile for an agent type.
func Lookup(agentType string) (Profile, bool) {
	for _, p := range profiles {
		if p.Type == agentType {
			return p, true
		}
	}
	return Profile{}, false
}
