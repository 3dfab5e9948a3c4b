package handlers

import (
	"net/http"

	"github.com/aistats/statshub/internal/api/response"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check handles GET /health. It reports liveness only; upstream availability
// does not affect it because the service keeps serving cached data.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	response.RespondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
