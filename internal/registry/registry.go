// ABOUTME: Per-session table of seller-side and user-side transport endpoints
// ABOUTME: A pure addressed mailbox; attach, detach, and routed delivery only

package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Role names one of the two sides of a negotiation session.
type Role string

const (
	RoleSeller Role = "seller"
	RoleUser   Role = "user"
)

// ErrPeerAbsent is returned by Send when no endpoint is attached for the
// addressed (session, role) slot. Not fatal: the message stays in history
// and a reconnecting peer is caught up from there.
var ErrPeerAbsent = errors.New("peer absent")

// Endpoint is a live outbound transport for one (session, role) slot.
// Implementations must be safe for concurrent WriteEvent calls.
type Endpoint interface {
	WriteEvent(v any) error
}

type slot struct {
	sessionID string
	role      Role
}

// Registry tracks at most one live endpoint per (session, role) slot.
// It carries no business logic; the relay engine decides who gets what.
type Registry struct {
	mu     sync.RWMutex
	slots  map[slot]Endpoint
	logger *slog.Logger
}

// New creates an empty registry. Pass nil logger for the default.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		slots:  make(map[slot]Endpoint),
		logger: logger.With("component", "registry"),
	}
}

// Attach registers ep as the live endpoint for (sessionID, role), replacing
// any prior endpoint. Replacement is not an error: the superseded endpoint
// simply stops receiving sends. The registry never closes transports.
func (r *Registry) Attach(sessionID string, role Role, ep Endpoint) {
	k := slot{sessionID, role}

	r.mu.Lock()
	_, superseded := r.slots[k]
	r.slots[k] = ep
	r.mu.Unlock()

	r.logger.Debug("endpoint attached",
		"session_id", sessionID,
		"role", string(role),
		"superseded", superseded)
}

// Detach unregisters ep only if it is still the current endpoint for the
// slot. A stale disconnect notification racing a reconnect is a no-op.
func (r *Registry) Detach(sessionID string, role Role, ep Endpoint) {
	k := slot{sessionID, role}

	r.mu.Lock()
	current := r.slots[k] == ep
	if current {
		delete(r.slots, k)
	}
	r.mu.Unlock()

	if current {
		r.logger.Debug("endpoint detached", "session_id", sessionID, "role", string(role))
	}
}

// Attached reports whether an endpoint currently occupies (sessionID, role).
func (r *Registry) Attached(sessionID string, role Role) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.slots[slot{sessionID, role}]
	return ok
}

// Send delivers v to the current endpoint for (sessionID, role). Returns
// ErrPeerAbsent when the slot is empty. A transport write failure detaches
// the failed endpoint and is reported to the caller.
func (r *Registry) Send(sessionID string, role Role, v any) error {
	r.mu.RLock()
	ep, ok := r.slots[slot{sessionID, role}]
	r.mu.RUnlock()

	if !ok {
		return ErrPeerAbsent
	}
	if err := ep.WriteEvent(v); err != nil {
		r.Detach(sessionID, role, ep)
		return fmt.Errorf("writing to %s endpoint: %w", role, err)
	}
	return nil
}

// Broadcast delivers v to each given role independently. Failure on one slot
// never affects delivery to another; failures are logged and swallowed.
func (r *Registry) Broadcast(sessionID string, v any, roles ...Role) {
	for _, role := range roles {
		if err := r.Send(sessionID, role, v); err != nil {
			if errors.Is(err, ErrPeerAbsent) {
				r.logger.Debug("broadcast skipped absent peer",
					"session_id", sessionID,
					"role", string(role))
				continue
			}
			r.logger.Warn("broadcast delivery failed",
				"session_id", sessionID,
				"role", string(role),
				"error", err)
		}
	}
}

// DropSession removes every slot for a session. Used at session teardown;
// like Detach, it does not close the underlying transports.
func (r *Registry) DropSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range []Role{RoleSeller, RoleUser} {
		delete(r.slots, slot{sessionID, role})
	}
}
