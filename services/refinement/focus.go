package refinement

import (
	"github.com/upb/ai-product-council/models"
	"github.com/upb/ai-product-council/services/agents"
)

var focusOrders = map[string][]string{
	models.FocusTechnical: {
		agents.Engineer, agents.Designer, agents.ProductManager,
		agents.RiskAnalyst, agents.MarketResearcher, agents.CustomerResearcher,
	},
	models.FocusMarket: {
		agents.MarketResearcher, agents.CustomerResearcher, agents.ProductManager,
		agents.RiskAnalyst, agents.Engineer, agents.Designer,
	},
	models.FocusUser: {
		agents.CustomerResearcher, agents.Designer, agents.ProductManager,
		agents.MarketResearcher, agents.Engineer, agents.RiskAnalyst,
	},
}

// ValidFocus reports whether focus is a known priority focus. Empty means balanced.
func ValidFocus(focus string) bool {
	if focus == "" || focus == models.FocusBalanced {
		return true
	}
	_, ok := focusOrders[focus]
	return ok
}

// AgentOrder returns the council members for focus, the ones whose input
// should lead the report first.
func AgentOrder(focus string) []string {
	if order, ok := focusOrders[focus]; ok {
		return append([]string(nil), order...)
	}
	return agents.Types()
}
