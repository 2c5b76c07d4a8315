package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler reports service liveness and collaborator reachability.
// The probe is typically a cheap gas-price call against the same node the
// harvest path uses.
type HealthHandler struct {
	environment       string
	turnkeyConfigured bool
	probe             func(ctx context.Context) error
}

// NewHealthHandler creates a health handler. probe may be nil when no RPC
// endpoint is configured.
func NewHealthHandler(environment string, turnkeyConfigured bool, probe func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{
		environment:       environment,
		turnkeyConfigured: turnkeyConfigured,
		probe:             probe,
	}
}

type healthResponse struct {
	Status            string `json:"status"`
	Environment       string `json:"environment"`
	TurnkeyConfigured bool   `json:"turnkey_configured"`
	RPCOk             bool   `json:"rpc_ok"`
	RPCLatencyMS      int64  `json:"rpc_latency_ms,omitempty"`
	RPCError          string `json:"rpc_error,omitempty"`
}

// Health handles GET /health
// @Summary      Service health
// @Tags         health
// @Produce      json
// @Success      200  {object}  handler.healthResponse
// @Router       /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	resp := healthResponse{
		Status:            "ok",
		Environment:       h.environment,
		TurnkeyConfigured: h.turnkeyConfigured,
	}

	if h.probe != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		started := time.Now()
		if err := h.probe(ctx); err != nil {
			resp.RPCError = err.Error()
		} else {
			resp.RPCOk = true
		}
		resp.RPCLatencyMS = time.Since(started).Milliseconds()
	}
	writeJSON(w, http.StatusOK, resp)
}
