package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/aistats/statshub/internal/api/response"
	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
)

// SnapshotAdminService reports on and refreshes the cached snapshot.
type SnapshotAdminService interface {
	Status(ctx context.Context) models.SnapshotStatus
	Refresh(ctx context.Context) (models.SnapshotStatus, error)
}

// SnapshotHandler handles snapshot metadata and manual refresh.
type SnapshotHandler struct {
	service SnapshotAdminService
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(service SnapshotAdminService) *SnapshotHandler {
	return &SnapshotHandler{service: service}
}

// Status handles GET /api/snapshot. It never triggers a refresh.
func (h *SnapshotHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	response.RespondJSON(w, http.StatusOK, h.service.Status(r.Context()))
}

// Refresh handles POST /v1/snapshot/refresh.
func (h *SnapshotHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Refresh(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, huberrors.ErrRateLimited):
			response.RespondTooManyRequests(w, "Too many refresh requests")
		case errors.Is(err, huberrors.ErrUpstream):
			response.RespondBadGateway(w, "Snapshot refresh failed; the previous snapshot is still served")
		default:
			response.RespondError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
		}

		return
	}

	response.RespondJSON(w, http.StatusOK, status)
}
