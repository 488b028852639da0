// ABOUTME: HTTP server shell wiring routes to the negotiation service
// ABOUTME: Owns listener lifecycle and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marketbot/haggle-gateway/internal/config"
	"github.com/marketbot/haggle-gateway/internal/negotiation"
	"github.com/marketbot/haggle-gateway/internal/registry"
	"github.com/marketbot/haggle-gateway/internal/store"
)

// Gateway is the HTTP and WebSocket boundary of the negotiation service.
type Gateway struct {
	service  *negotiation.Service
	registry *registry.Registry
	store    store.Store
	logger   *slog.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// New creates a gateway serving on cfg.Server.HTTPAddr.
func New(cfg *config.Config, svc *negotiation.Service, reg *registry.Registry, st store.Store, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	g := &Gateway{
		service:  svc,
		registry: reg,
		store:    st,
		logger:   logger.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser frontends are served from other origins in development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/api/products", g.handleListProducts)
	mux.HandleFunc("/api/products/", g.handleGetProduct)
	mux.HandleFunc("/api/negotiations/start", g.handleStart)
	mux.HandleFunc("/api/negotiations/", g.handleNegotiationRoutes)
	mux.HandleFunc("/ws/seller/", g.handleSellerSocket)
	mux.HandleFunc("/ws/user/", g.handleUserSocket)

	g.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return g
}

// Handler exposes the route table, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled or
// the server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		g.logger.Info("HTTP server listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		g.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down HTTP server: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
