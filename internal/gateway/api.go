// ABOUTME: REST handlers for products and negotiation lifecycle
// ABOUTME: Maps the service error taxonomy onto HTTP status codes

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/marketbot/haggle-gateway/internal/negotiation"
	"github.com/marketbot/haggle-gateway/internal/session"
	"github.com/marketbot/haggle-gateway/internal/store"
)

// StartNegotiationRequest is the JSON request body for POST /api/negotiations/start.
type StartNegotiationRequest struct {
	ProductID   string `json:"product_id"`
	TargetPrice int    `json:"target_price"`
	MaxBudget   int    `json:"max_budget"`
	Approach    string `json:"approach"`
}

// StartNegotiationResponse is the JSON response for POST /api/negotiations/start.
type StartNegotiationResponse struct {
	SessionID string         `json:"session_id"`
	Product   *store.Product `json:"product"`
}

// EndNegotiationRequest is the JSON request body for POST /api/negotiations/{id}/end.
type EndNegotiationRequest struct {
	FinalPrice *int   `json:"final_price,omitempty"`
	Outcome    string `json:"outcome"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service-layer errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidParams):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrEnded):
		writeError(w, http.StatusConflict, "session already ended")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// handleListProducts handles GET /api/products.
func (g *Gateway) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	products, err := g.store.ListProducts(r.Context())
	if err != nil {
		g.logger.Error("listing products failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// handleGetProduct handles GET /api/products/{id}.
func (g *Gateway) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}

	product, err := g.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		g.logger.Error("loading product failed", "product_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleStart handles POST /api/negotiations/start.
func (g *Gateway) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req StartNegotiationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := g.service.Start(r.Context(), session.Params{
		ProductID:   req.ProductID,
		TargetPrice: req.TargetPrice,
		MaxBudget:   req.MaxBudget,
		Approach:    session.Approach(req.Approach),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StartNegotiationResponse{
		SessionID: result.SessionID,
		Product:   result.Product,
	})
}

// handleNegotiationRoutes dispatches /api/negotiations/{id} and
// /api/negotiations/{id}/end.
func (g *Gateway) handleNegotiationRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/negotiations/")

	if id, ok := strings.CutSuffix(rest, "/end"); ok {
		g.handleEnd(w, r, id)
		return
	}
	if rest == "" || strings.Contains(rest, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	g.handleGetSession(w, r, rest)
}

// handleGetSession handles GET /api/negotiations/{id}.
func (g *Gateway) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	sess, err := g.service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleEnd handles POST /api/negotiations/{id}/end.
func (g *Gateway) handleEnd(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req EndNegotiationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Outcome == "" {
		req.Outcome = "unknown"
	}

	err := g.service.End(r.Context(), id, negotiation.Outcome{
		FinalPrice: req.FinalPrice,
		Result:     req.Outcome,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "negotiation ended"})
}
