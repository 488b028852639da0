// ABOUTME: Strategy table and system prompt construction for the buyer agent
// ABOUTME: Each approach maps to a style/tactics/personality triple

package llm

import (
	"fmt"
	"strings"

	"github.com/marketbot/haggle-gateway/internal/session"
)

type strategy struct {
	style       string
	tactics     string
	personality string
}

var strategies = map[session.Approach]strategy{
	session.ApproachAssertive: {
		style:       "direct and confident",
		tactics:     "make firm offers, cite market research, stay persistent but polite",
		personality: "business-like and decisive",
	},
	session.ApproachDiplomatic: {
		style:       "balanced and respectful",
		tactics:     "find mutual benefits, acknowledge the seller's position, propose win-win terms",
		personality: "professional and understanding",
	},
	session.ApproachConsiderate: {
		style:       "empathetic and budget-conscious",
		tactics:     "explain budget constraints, show genuine interest, be patient",
		personality: "humble and appreciative",
	},
}

// strategyFor resolves the strategy for an approach. Generators receive
// validated approaches from the relay, but the contract still requires
// unknown values to behave as diplomatic.
func strategyFor(a session.Approach) strategy {
	if s, ok := strategies[a]; ok {
		return s
	}
	return strategies[session.ApproachDiplomatic]
}

// buildSystemPrompt renders the buyer agent's instructions for one turn.
func buildSystemPrompt(req *Request) string {
	st := strategyFor(req.Approach)

	var b strings.Builder
	fmt.Fprintf(&b, "You are negotiating as a buyer for: %s\n", req.Product.Title)
	fmt.Fprintf(&b, "Asking price: %d. Your target price: %d. Your hard maximum: %d.\n",
		req.Product.Price, req.TargetPrice, req.MaxBudget)
	fmt.Fprintf(&b, "Condition: %s. Seller: %s. Location: %s.\n",
		req.Product.Condition, req.Product.SellerName, req.Product.Location)
	fmt.Fprintf(&b, "Style: %s. Tactics: %s. Personality: %s.\n",
		st.style, st.tactics, st.personality)
	b.WriteString("Reply as a human buyer in 50-80 words. Never reveal you are automated. ")
	b.WriteString("Never offer above your maximum. Work toward your target price, ")
	b.WriteString("and move to close the deal once terms are acceptable.")
	return b.String()
}
