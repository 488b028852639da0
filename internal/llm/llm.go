// ABOUTME: Text-generation contract consumed by the relay engine
// ABOUTME: A Request carries strategy, budget bounds, recent history, and product

package llm

import (
	"errors"

	"github.com/marketbot/haggle-gateway/internal/session"
	"github.com/marketbot/haggle-gateway/internal/store"
)

// ErrUnavailable wraps any generation failure, timeouts included. The relay
// engine treats every error from a generator as this condition.
var ErrUnavailable = errors.New("generation unavailable")

// Request is the input to one generation call. History holds a bounded
// recent window of the session's messages in append order; it may be empty
// at session opening. Product is the listing under negotiation.
type Request struct {
	Approach    session.Approach
	TargetPrice int
	MaxBudget   int
	History     []session.Message
	Product     *store.Product
}

// lastSellerMessage returns the content of the most recent seller message
// in the request history, or "" when the seller has not spoken yet.
func (r *Request) lastSellerMessage() string {
	for i := len(r.History) - 1; i >= 0; i-- {
		if r.History[i].Sender == session.SenderSeller {
			return r.History[i].Content
		}
	}
	return ""
}
