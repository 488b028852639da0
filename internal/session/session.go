// ABOUTME: Session aggregate: parameters, ordered history, completion state
// ABOUTME: Mutated only under the owning Store entry; snapshots are safe to share

package session

import "time"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Session is one negotiation conversation. The message slice is append-only
// and its order is physical arrival order, which makes timestamps
// monotonically non-decreasing within a session.
type Session struct {
	ID         string     `json:"id"`
	Params     Params     `json:"params"`
	Messages   []Message  `json:"messages"`
	Status     Status     `json:"status"`
	FinalPrice *int       `json:"final_price,omitempty"`
	Outcome    string     `json:"outcome,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// Append adds a message to the history. Callers must hold the session's
// store entry (via Store.Update); Append itself does no locking.
func (s *Session) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// Snapshot returns a copy whose message slice is independent of the original,
// so it can be read after the store entry is released.
func (s *Session) Snapshot() *Session {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}

// RecentMessages returns up to n of the most recent messages.
func (s *Session) RecentMessages(n int) []Message {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}
