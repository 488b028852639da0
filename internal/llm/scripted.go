// ABOUTME: Rule-based generator used when no Gemini API key is configured
// ABOUTME: Keyword-matches the seller's last message and phrases by approach

package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/marketbot/haggle-gateway/internal/session"
)

// Scripted is a deterministic generator driven by keyword rules. It keeps
// the gateway fully usable in development and acts as the offline fallback.
type Scripted struct{}

// NewScripted creates the rule-based generator.
func NewScripted() *Scripted {
	return &Scripted{}
}

// Generate produces a canned buyer reply from the seller's last message.
// It never fails and ignores ctx beyond the contract signature.
func (s *Scripted) Generate(ctx context.Context, req *Request) (string, error) {
	approach := req.Approach
	if _, ok := strategies[approach]; !ok {
		approach = session.ApproachDiplomatic
	}

	target := req.TargetPrice
	seller := req.Product.SellerName

	last := strings.ToLower(req.lastSellerMessage())
	if last == "" {
		// Session opening.
		switch approach {
		case session.ApproachAssertive:
			return fmt.Sprintf("Hello %s! I'm interested in your listing. Based on current market rates, I'd like to offer %d. Is this acceptable?", seller, target), nil
		case session.ApproachConsiderate:
			return fmt.Sprintf("Hi %s! I'm really interested in your listing. My budget is a bit tight at %d. Would this work for you?", seller, target), nil
		default:
			return fmt.Sprintf("Good day %s! I'm very interested in your product. Would you consider an offer of %d? I believe it's a fair price given the current market.", seller, target), nil
		}
	}

	switch {
	case containsAny(last, "hi", "hello", "available"):
		switch approach {
		case session.ApproachAssertive:
			return fmt.Sprintf("Hello %s! Yes, I'm very interested. I can offer %d for immediate purchase. When can we meet?", seller, target), nil
		case session.ApproachConsiderate:
			return fmt.Sprintf("Hello %s! Yes, I'm interested. I'm hoping to stay within %d if possible. Could we work something out?", seller, target), nil
		default:
			return fmt.Sprintf("Hi there %s! Yes, I'm interested in your listing. The item looks great. Would %d work for you?", seller, target), nil
		}

	case containsAny(last, "no", "cannot", "firm", "minimum"):
		// Seller pushed back: bump the offer, capped well inside budget.
		counter := target * 115 / 100
		if counter > target+5000 {
			counter = target + 5000
		}
		if counter > req.MaxBudget {
			counter = req.MaxBudget
		}
		switch approach {
		case session.ApproachAssertive:
			return fmt.Sprintf("I understand. Let me stretch my budget to %d. This is really my maximum.", counter), nil
		case session.ApproachConsiderate:
			return fmt.Sprintf("I really want this item. Could you please consider %d? It would mean a lot to me.", counter), nil
		default:
			return fmt.Sprintf("I appreciate your position. Could we perhaps meet at %d? That would really help both of us.", counter), nil
		}

	case containsAny(last, "yes", "okay", "accept", "deal"):
		return "Excellent! That works perfectly for me. When would be convenient for pickup? I can arrange payment immediately.", nil

	case containsAny(last, "meet", "pickup", "delivery"):
		return "Perfect! I'm flexible with timing. I can come today or tomorrow, whatever works best for you. Should I bring cash or is online transfer preferred?", nil

	case containsAny(last, "price", "cost", "amount"):
		switch approach {
		case session.ApproachAssertive:
			return fmt.Sprintf("Based on market research, %d is what I can offer. It's competitive and fair.", target), nil
		case session.ApproachConsiderate:
			return fmt.Sprintf("I understand the value, but my budget is limited to %d. Is there any flexibility?", target), nil
		default:
			return fmt.Sprintf("I've been looking at similar items, and %d seems reasonable. What do you think?", target), nil
		}

	case containsAny(last, "condition", "working", "problem"):
		return fmt.Sprintf("Thank you for the details. As long as everything is as described, I'm happy to proceed with %d. Can we finalize this?", target), nil

	default:
		switch approach {
		case session.ApproachAssertive:
			return fmt.Sprintf("Let me be direct - I can offer %d and arrange pickup today. This is a fair market price.", target), nil
		case session.ApproachConsiderate:
			return fmt.Sprintf("I'm really hoping we can work something out at %d. This would really help with my budget constraints.", target), nil
		default:
			return fmt.Sprintf("I've researched similar listings and %d seems to be the going rate. Would you consider this offer?", target), nil
		}
	}
}

func containsAny(s string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
