// ABOUTME: WebSocket endpoints binding seller and user connections to sessions
// ABOUTME: Upgrades, attaches to the registry, and pumps inbound frames to the relay

package gateway

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/marketbot/haggle-gateway/internal/negotiation"
	"github.com/marketbot/haggle-gateway/internal/registry"
	"github.com/marketbot/haggle-gateway/internal/session"
)

// wsEndpoint adapts a websocket connection to the registry.Endpoint
// contract. Gorilla connections allow one concurrent writer, so writes are
// serialized here.
type wsEndpoint struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (e *wsEndpoint) WriteEvent(v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn.WriteJSON(v)
}

// inboundFrame is the shape of messages arriving from either peer.
type inboundFrame struct {
	Content string `json:"content"`
}

func (g *Gateway) handleSellerSocket(w http.ResponseWriter, r *http.Request) {
	g.handleSocket(w, r, registry.RoleSeller, "/ws/seller/")
}

func (g *Gateway) handleUserSocket(w http.ResponseWriter, r *http.Request) {
	g.handleSocket(w, r, registry.RoleUser, "/ws/user/")
}

// handleSocket serves one (session, role) connection for its lifetime:
// upgrade, attach, catch-up, then read frames until the peer goes away.
func (g *Gateway) handleSocket(w http.ResponseWriter, r *http.Request, role registry.Role, prefix string) {
	sessionID := strings.TrimPrefix(r.URL.Path, prefix)
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.NotFound(w, r)
		return
	}

	// Reject unknown or completed sessions before upgrading.
	sess, err := g.service.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sess.Status != session.StatusActive {
		writeError(w, http.StatusConflict, "session already ended")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed",
			"session_id", sessionID,
			"role", string(role),
			"error", err)
		return
	}
	defer conn.Close()

	ep := &wsEndpoint{conn: conn}
	g.registry.Attach(sessionID, role, ep)
	defer g.registry.Detach(sessionID, role, ep)

	g.logger.Info("peer connected", "session_id", sessionID, "role", string(role))

	// Catch-up: replay history so a reconnecting peer misses nothing that
	// was appended while it was away.
	if len(sess.Messages) > 0 {
		if err := ep.WriteEvent(negotiation.HistoryPayload(sess.Messages)); err != nil {
			g.logger.Warn("history catch-up failed", "session_id", sessionID, "error", err)
			return
		}
	}

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				g.logger.Warn("websocket read failed",
					"session_id", sessionID,
					"role", string(role),
					"error", err)
			}
			g.logger.Info("peer disconnected", "session_id", sessionID, "role", string(role))
			return
		}

		var handleErr error
		switch role {
		case registry.RoleSeller:
			handleErr = g.service.OnSellerMessage(r.Context(), sessionID, frame.Content)
		case registry.RoleUser:
			handleErr = g.service.OnUserMessage(r.Context(), sessionID, frame.Content)
		}

		if handleErr != nil {
			if errors.Is(handleErr, session.ErrNotFound) || errors.Is(handleErr, session.ErrEnded) {
				// The session ended under this connection; shut it down.
				return
			}
			g.logger.Warn("message handling failed",
				"session_id", sessionID,
				"role", string(role),
				"error", handleErr)
		}
	}
}
