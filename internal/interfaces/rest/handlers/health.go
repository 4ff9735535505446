package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HandleHealth reports liveness and whether Postgres answers a ping
// @Summary      Health check
// @Tags         ops
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /healthz [get]
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK
	if err := h.health.Ping(ctx); err != nil {
		h.logger.Error("health check failed", "error", err)
		resp = HealthResponse{Status: "degraded", Database: "unreachable"}
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
