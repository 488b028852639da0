// ABOUTME: The two relay entry points: seller turns and user-side overrides
// ABOUTME: One turn lock per session; generation suspends only that session

package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/marketbot/haggle-gateway/internal/llm"
	"github.com/marketbot/haggle-gateway/internal/registry"
	"github.com/marketbot/haggle-gateway/internal/session"
)

// OnUserMessage handles a manual override typed on the supervising side.
// The override is appended to history and relayed to the seller attributed
// to the buyer. No text generation runs: overrides bypass the agent.
func (s *Service) OnUserMessage(ctx context.Context, sessionID, content string) error {
	mu := s.turnLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	msg := session.NewMessage(sessionID, session.SenderUser, content, session.TypeOverride)
	snap, err := s.append(sessionID, msg)
	if err != nil {
		return err
	}

	s.deliver(sessionID, registry.RoleSeller, messagePayload(msg, WireSenderBuyer))
	s.saveSession(snap)
	return nil
}

// OnSellerMessage handles the counter-party's turn: append the seller
// message, relay the raw text to the user side, then generate the agent's
// reply and fan it out. On generation failure only the user side is told;
// the seller hears nothing, so the automation stays invisible.
func (s *Service) OnSellerMessage(ctx context.Context, sessionID, content string) error {
	mu := s.turnLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	msg := session.NewMessage(sessionID, session.SenderSeller, content, session.TypeHuman)
	snap, err := s.append(sessionID, msg)
	if err != nil {
		return err
	}

	s.deliver(sessionID, registry.RoleUser, messagePayload(msg, WireSenderSeller))
	s.saveSession(snap)

	// The generation call runs inside the turn lock: a second seller message
	// for this session queues behind it, while other sessions proceed.
	text, err := s.generate(ctx, snap)
	if err != nil {
		s.logger.Warn("generation failed",
			"session_id", sessionID,
			"error", err)
		s.deliver(sessionID, registry.RoleUser, errorPayload("failed to generate buyer response"))
		return nil
	}

	reply := session.NewMessage(sessionID, session.SenderAI, text, session.TypeAI)
	snap, err = s.append(sessionID, reply)
	if err != nil {
		// The session ended while the model was thinking; drop the reply.
		s.logger.Debug("discarding late generation result", "session_id", sessionID)
		return nil
	}

	s.deliver(sessionID, registry.RoleSeller, messagePayload(reply, WireSenderBuyer))
	s.deliver(sessionID, registry.RoleUser, aiResponsePayload(reply))
	s.saveSession(snap)
	return nil
}

// append adds a message to the session's history under its store entry and
// returns a post-append snapshot. Appends to a non-active session fail.
func (s *Service) append(sessionID string, msg session.Message) (*session.Session, error) {
	var snap *session.Session
	err := s.sessions.Update(sessionID, func(sess *session.Session) error {
		if sess.Status != session.StatusActive {
			return session.ErrEnded
		}
		sess.Append(msg)
		snap = sess.Snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// deliver routes one payload. An absent peer is expected (the message stays
// in history for catch-up); transport failures are logged and swallowed.
func (s *Service) deliver(sessionID string, role registry.Role, p *Payload) {
	err := s.registry.Send(sessionID, role, p)
	if err == nil {
		return
	}
	if errors.Is(err, registry.ErrPeerAbsent) {
		s.logger.Debug("peer absent, message kept in history",
			"session_id", sessionID,
			"role", string(role))
		return
	}
	s.logger.Warn("delivery failed",
		"session_id", sessionID,
		"role", string(role),
		"error", err)
}

// generate runs one bounded text-generation call against a session snapshot.
func (s *Service) generate(ctx context.Context, snap *session.Session) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()

	product, err := s.store.GetProduct(genCtx, snap.Params.ProductID)
	if err != nil {
		return "", fmt.Errorf("%w: loading product: %v", llm.ErrUnavailable, err)
	}

	req := &llm.Request{
		Approach:    snap.Params.Approach,
		TargetPrice: snap.Params.TargetPrice,
		MaxBudget:   snap.Params.MaxBudget,
		History:     snap.RecentMessages(s.window),
		Product:     product,
	}

	text, err := s.generator.Generate(genCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: timed out after %s", llm.ErrUnavailable, s.genTimeout)
		}
		if errors.Is(err, llm.ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}
	return text, nil
}

// turnLock returns the serialization lock for a session, creating it on
// first use. Turn order through this lock is what makes history order equal
// call-acceptance order.
func (s *Service) turnLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.turns[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.turns[sessionID] = mu
	}
	return mu
}

func (s *Service) dropTurnLock(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, sessionID)
}
