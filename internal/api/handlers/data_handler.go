package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aistats/statshub/internal/api/response"
	"github.com/aistats/statshub/internal/api/validation"
	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
)

// DataService answers the public read queries.
type DataService interface {
	ListModels(ctx context.Context, q models.ModelQuery) []models.ModelRecord
	FetchFreshModels(ctx context.Context, q models.ModelQuery) ([]models.ModelRecord, error)
	Benchmarks(ctx context.Context) []models.BenchmarkDefinition
	BenchmarkRuns(ctx context.Context, q models.RunQuery) []models.BenchmarkRun
	EpochModels(ctx context.Context) []models.EpochModel
}

// CachePolicy is advertised to shared caches on cached responses.
type CachePolicy struct {
	// EdgeMaxAge is sent as s-maxage.
	EdgeMaxAge time.Duration
	// StaleWhileRevalidate is usually the snapshot freshness window.
	StaleWhileRevalidate time.Duration
}

// Header renders the Cache-Control value.
func (p CachePolicy) Header() string {
	return fmt.Sprintf("public, max-age=0, s-maxage=%d, stale-while-revalidate=%d",
		int64(p.EdgeMaxAge.Seconds()), int64(p.StaleWhileRevalidate.Seconds()))
}

// DataHandler serves the snapshot collections as JSON arrays.
type DataHandler struct {
	service      DataService
	cacheControl string
}

// NewDataHandler creates a new data handler.
func NewDataHandler(service DataService, policy CachePolicy) *DataHandler {
	return &DataHandler{service: service, cacheControl: policy.Header()}
}

// ListModels handles GET /api/models.json.
// Query params: search, benchmark, fresh.
func (h *DataHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	var q models.ModelQuery
	if err := validation.ValidateAndDecodeQueryParams(r, &q); err != nil {
		response.RespondErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if !q.Fresh {
		h.respondCached(w, nonNil(h.service.ListModels(r.Context(), q)))
		return
	}

	records, err := h.service.FetchFreshModels(r.Context(), q)
	if err != nil {
		if errors.Is(err, huberrors.ErrRateLimited) {
			response.RespondErrorMessage(w, http.StatusTooManyRequests, "Too many refresh requests")
			return
		}

		slog.ErrorContext(r.Context(), "Fresh models fetch failed", "error", err)
		response.RespondErrorMessage(w, http.StatusInternalServerError, "Failed to fetch models")

		return
	}

	w.Header().Set("Cache-Control", "no-store")
	response.RespondJSON(w, http.StatusOK, nonNil(records))
}

// ListBenchmarks handles GET /api/benchmarks.json.
func (h *DataHandler) ListBenchmarks(w http.ResponseWriter, r *http.Request) {
	h.respondCached(w, nonNil(h.service.Benchmarks(r.Context())))
}

// ListBenchmarkRuns handles GET /api/benchmark-runs.json.
// Query params: benchmark (slug), model_version.
func (h *DataHandler) ListBenchmarkRuns(w http.ResponseWriter, r *http.Request) {
	var q models.RunQuery
	if err := validation.ValidateAndDecodeQueryParams(r, &q); err != nil {
		response.RespondErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondCached(w, nonNil(h.service.BenchmarkRuns(r.Context(), q)))
}

// ListEpochModels handles GET /api/epoch-models.json.
func (h *DataHandler) ListEpochModels(w http.ResponseWriter, r *http.Request) {
	h.respondCached(w, nonNil(h.service.EpochModels(r.Context())))
}

func (h *DataHandler) respondCached(w http.ResponseWriter, data any) {
	w.Header().Set("Cache-Control", h.cacheControl)
	response.RespondJSON(w, http.StatusOK, data)
}

// nonNil makes empty results serialize as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
