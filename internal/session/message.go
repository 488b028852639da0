// ABOUTME: Message record and negotiation parameter types shared across the gateway
// ABOUTME: Messages are immutable once built; construction stamps the ID and timestamp

package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender values identify which party authored a message.
const (
	SenderSeller = "seller"
	SenderUser   = "user"
	SenderAI     = "ai"
)

// SenderType values distinguish how a message came to exist.
const (
	TypeHuman    = "human"
	TypeOverride = "override"
	TypeAI       = "ai"
)

// Message is one chat message in a negotiation session. A Message is never
// mutated after NewMessage returns; history holds them in append order.
type Message struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Sender     string    `json:"sender"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	SenderType string    `json:"sender_type"`
}

// NewMessage builds a message with a fresh ID and the current time.
func NewMessage(sessionID, sender, content, senderType string) Message {
	return Message{
		ID:         uuid.New().String(),
		SessionID:  sessionID,
		Sender:     sender,
		Content:    content,
		Timestamp:  time.Now(),
		SenderType: senderType,
	}
}

// Approach selects the buyer agent's negotiation style.
type Approach string

const (
	ApproachAssertive   Approach = "assertive"
	ApproachDiplomatic  Approach = "diplomatic"
	ApproachConsiderate Approach = "considerate"
)

// ParseApproach maps free-form input onto the closed approach set.
// Unrecognized input falls back to diplomatic. The fallback is applied here,
// once, at the boundary; downstream code only ever sees a valid Approach.
func ParseApproach(s string) Approach {
	switch Approach(strings.ToLower(strings.TrimSpace(s))) {
	case ApproachAssertive:
		return ApproachAssertive
	case ApproachConsiderate:
		return ApproachConsiderate
	default:
		return ApproachDiplomatic
	}
}

// ErrInvalidParams indicates negotiation parameters that fail validation.
var ErrInvalidParams = errors.New("invalid negotiation parameters")

// Params are the negotiation parameters supplied once at session start.
type Params struct {
	ProductID   string   `json:"product_id"`
	TargetPrice int      `json:"target_price"`
	MaxBudget   int      `json:"max_budget"`
	Approach    Approach `json:"approach"`
}

// Validate checks the parameter invariants. All failures wrap ErrInvalidParams.
func (p Params) Validate() error {
	if p.ProductID == "" {
		return fmt.Errorf("%w: product_id is required", ErrInvalidParams)
	}
	if p.TargetPrice <= 0 {
		return fmt.Errorf("%w: target_price must be positive", ErrInvalidParams)
	}
	if p.MaxBudget <= 0 {
		return fmt.Errorf("%w: max_budget must be positive", ErrInvalidParams)
	}
	if p.TargetPrice > p.MaxBudget {
		return fmt.Errorf("%w: target_price %d exceeds max_budget %d", ErrInvalidParams, p.TargetPrice, p.MaxBudget)
	}
	return nil
}
