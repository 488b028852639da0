// ABOUTME: Negotiation service: session lifecycle plus the message relay engine
// ABOUTME: Record first, then deliver - history is the source of truth

package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketbot/haggle-gateway/internal/llm"
	"github.com/marketbot/haggle-gateway/internal/registry"
	"github.com/marketbot/haggle-gateway/internal/session"
	"github.com/marketbot/haggle-gateway/internal/store"
)

// Generator is the text-generation collaborator invoked for seller turns.
type Generator interface {
	Generate(ctx context.Context, req *llm.Request) (string, error)
}

const (
	defaultGenerationTimeout = 30 * time.Second
	defaultHistoryWindow     = 6
	saveTimeout              = 5 * time.Second
)

// Config tunes the relay engine.
type Config struct {
	// GenerationTimeout bounds one text-generation call. Expiry is treated
	// exactly like a generation failure.
	GenerationTimeout time.Duration

	// HistoryWindow is the maximum number of recent messages handed to the
	// generator.
	HistoryWindow int
}

// Service owns session lifecycle and message-turn orchestration. It is the
// single authority deciding, per inbound event, what gets appended to
// history and who receives what.
type Service struct {
	sessions  *session.Store
	registry  *registry.Registry
	generator Generator
	store     store.Store
	logger    *slog.Logger

	genTimeout time.Duration
	window     int

	mu    sync.Mutex
	turns map[string]*sync.Mutex // per-session turn serialization
}

// New creates a negotiation service. Pass nil logger for the default.
func New(sessions *session.Store, reg *registry.Registry, gen Generator, st store.Store, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = defaultGenerationTimeout
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = defaultHistoryWindow
	}
	return &Service{
		sessions:   sessions,
		registry:   reg,
		generator:  gen,
		store:      st,
		logger:     logger.With("component", "negotiation"),
		genTimeout: cfg.GenerationTimeout,
		window:     cfg.HistoryWindow,
		turns:      make(map[string]*sync.Mutex),
	}
}

// StartResult is returned by Start.
type StartResult struct {
	SessionID string
	Product   *store.Product
}

// Start validates parameters, resolves the product, and registers a fresh
// active session with empty history. Validation failures and unknown
// products wrap session.ErrInvalidParams.
func (s *Service) Start(ctx context.Context, params session.Params) (*StartResult, error) {
	params.Approach = session.ParseApproach(string(params.Approach))
	if err := params.Validate(); err != nil {
		return nil, err
	}

	product, err := s.store.GetProduct(ctx, params.ProductID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown product %q", session.ErrInvalidParams, params.ProductID)
		}
		return nil, fmt.Errorf("loading product: %w", err)
	}

	sess := &session.Session{
		ID:        uuid.New().String(),
		Params:    params,
		Status:    session.StatusActive,
		CreatedAt: time.Now(),
	}
	snap := sess.Snapshot()
	s.sessions.Put(sess)
	s.saveSession(snap)

	s.logger.Info("session started",
		"session_id", sess.ID,
		"product_id", params.ProductID,
		"approach", string(params.Approach),
		"target_price", params.TargetPrice,
		"max_budget", params.MaxBudget)

	return &StartResult{SessionID: sess.ID, Product: product}, nil
}

// End completes a session exactly once: stamps the outcome, persists,
// notifies both sides, and evicts the session from the live table.
// A session that was already ended yields session.ErrEnded; one that never
// existed yields session.ErrNotFound.
func (s *Service) End(ctx context.Context, sessionID string, outcome Outcome) error {
	var snap *session.Session
	err := s.sessions.Update(sessionID, func(sess *session.Session) error {
		if sess.Status != session.StatusActive {
			return session.ErrEnded
		}
		now := time.Now()
		sess.Status = session.StatusCompleted
		sess.FinalPrice = outcome.FinalPrice
		sess.Outcome = outcome.Result
		sess.EndedAt = &now
		snap = sess.Snapshot()
		return nil
	})
	if errors.Is(err, session.ErrNotFound) {
		// Eviction already removed ended sessions from the live table, so
		// consult the durable record to tell "ended" apart from "never existed".
		prev, loadErr := s.store.LoadSession(ctx, sessionID)
		if loadErr == nil && prev.Status == session.StatusCompleted {
			return session.ErrEnded
		}
		return session.ErrNotFound
	}
	if err != nil {
		return err
	}

	s.saveSession(snap)
	s.registry.Broadcast(sessionID, sessionEndedPayload(outcome), registry.RoleSeller, registry.RoleUser)
	s.sessions.Evict(sessionID)
	s.registry.DropSession(sessionID)
	s.dropTurnLock(sessionID)

	s.logger.Info("session ended", "session_id", sessionID, "outcome", outcome.Result)
	return nil
}

// Get returns a consistent snapshot of a session: the live one when active,
// otherwise the persisted record of a completed session.
func (s *Service) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	if sess, err := s.sessions.Get(sessionID); err == nil {
		return sess, nil
	}
	sess, err := s.store.LoadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// saveSession persists a snapshot with its own timeout context, so durable
// writes are not cut short by a cancelled request. Persistence failures are
// logged, never propagated: the in-memory history remains authoritative.
func (s *Service) saveSession(snap *session.Session) {
	saveCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := s.store.SaveSession(saveCtx, snap); err != nil {
		s.logger.Error("failed to save session",
			"error", err,
			"session_id", snap.ID,
			"messages", len(snap.Messages))
	}
}
