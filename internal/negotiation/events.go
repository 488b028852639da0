// ABOUTME: Outbound event payloads fanned out to seller and user endpoints
// ABOUTME: Wire shapes shared by both sides; the type tag drives client handling

package negotiation

import "github.com/marketbot/haggle-gateway/internal/session"

// Payload type tags.
const (
	EventMessage      = "message"
	EventAIResponse   = "ai_response"
	EventError        = "error"
	EventSessionEnded = "session_ended"
	EventHistory      = "history"
)

// Wire sender labels. The agent's replies reach the seller labeled as the
// buyer; only the user side ever sees the "ai" label.
const (
	WireSenderBuyer  = "buyer"
	WireSenderSeller = "seller"
	WireSenderAI     = "ai"
)

// Outcome is the terminal result of a negotiation.
type Outcome struct {
	FinalPrice *int   `json:"final_price,omitempty"`
	Result     string `json:"outcome"`
}

// Payload is one outbound event. Fields are populated per type tag:
// message/ai_response carry Message and Sender, error carries Reason,
// session_ended carries Result, history carries Messages.
type Payload struct {
	Type     string            `json:"type"`
	Message  *session.Message  `json:"message,omitempty"`
	Sender   string            `json:"sender,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Result   *Outcome          `json:"result,omitempty"`
	Messages []session.Message `json:"messages,omitempty"`
}

func messagePayload(msg session.Message, sender string) *Payload {
	return &Payload{Type: EventMessage, Message: &msg, Sender: sender}
}

func aiResponsePayload(msg session.Message) *Payload {
	return &Payload{Type: EventAIResponse, Message: &msg, Sender: WireSenderAI}
}

func errorPayload(reason string) *Payload {
	return &Payload{Type: EventError, Reason: reason}
}

func sessionEndedPayload(outcome Outcome) *Payload {
	return &Payload{Type: EventSessionEnded, Result: &outcome}
}

// HistoryPayload carries a full history snapshot, sent to an endpoint right
// after it attaches so a reconnecting peer catches up on missed messages.
func HistoryPayload(messages []session.Message) *Payload {
	return &Payload{Type: EventHistory, Messages: messages}
}
