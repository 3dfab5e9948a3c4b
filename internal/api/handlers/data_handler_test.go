package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
)

type mockDataService struct {
	listFunc   func(ctx context.Context, q models.ModelQuery) []models.ModelRecord
	freshFunc  func(ctx context.Context, q models.ModelQuery) ([]models.ModelRecord, error)
	benchmarks []models.BenchmarkDefinition
	runsFunc   func(ctx context.Context, q models.RunQuery) []models.BenchmarkRun
	epoch      []models.EpochModel
}

func (m *mockDataService) ListModels(ctx context.Context, q models.ModelQuery) []models.ModelRecord {
	if m.listFunc != nil {
		return m.listFunc(ctx, q)
	}
	return nil
}

func (m *mockDataService) FetchFreshModels(ctx context.Context, q models.ModelQuery) ([]models.ModelRecord, error) {
	if m.freshFunc != nil {
		return m.freshFunc(ctx, q)
	}
	return nil, nil
}

func (m *mockDataService) Benchmarks(context.Context) []models.BenchmarkDefinition { return m.benchmarks }

func (m *mockDataService) BenchmarkRuns(ctx context.Context, q models.RunQuery) []models.BenchmarkRun {
	if m.runsFunc != nil {
		return m.runsFunc(ctx, q)
	}
	return nil
}

func (m *mockDataService) EpochModels(context.Context) []models.EpochModel { return m.epoch }

var testPolicy = CachePolicy{EdgeMaxAge: 5 * time.Minute, StaleWhileRevalidate: 6 * time.Hour}

func strPtr(s string) *string { return &s }

func TestCachePolicy_Header(t *testing.T) {
	assert.Equal(t, "public, max-age=0, s-maxage=300, stale-while-revalidate=21600", testPolicy.Header())
	assert.Equal(t, "public, max-age=0, s-maxage=0, stale-while-revalidate=0", CachePolicy{}.Header())
}

func TestDataHandler_ListModels(t *testing.T) {
	t.Run("passes filters and sets cache headers", func(t *testing.T) {
		mock := &mockDataService{
			listFunc: func(_ context.Context, q models.ModelQuery) []models.ModelRecord {
				assert.Equal(t, models.ModelQuery{Search: "gpt", Benchmark: "gpqa"}, q)
				return []models.ModelRecord{{ID: "m1", Name: strPtr("GPT-5"), CreatorName: strPtr("OpenAI")}}
			},
		}
		handler := NewDataHandler(mock, testPolicy)

		rec := httptest.NewRecorder()
		handler.ListModels(rec, httptest.NewRequest(http.MethodGet, "http://test/api/models.json?search=gpt&benchmark=gpqa", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, testPolicy.Header(), rec.Header().Get("Cache-Control"))

		var body []map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Len(t, body, 1)
		assert.Equal(t, "GPT-5", body[0]["name"])
		assert.Equal(t, "OpenAI", body[0]["company_name"])
		assert.Contains(t, body[0], "gpqa")
		assert.Nil(t, body[0]["gpqa"])
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		handler := NewDataHandler(&mockDataService{}, testPolicy)

		rec := httptest.NewRecorder()
		handler.ListModels(rec, httptest.NewRequest(http.MethodGet, "http://test/api/models.json", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})

	t.Run("invalid params return 400", func(t *testing.T) {
		called := false
		mock := &mockDataService{
			listFunc: func(context.Context, models.ModelQuery) []models.ModelRecord {
				called = true
				return nil
			},
		}
		handler := NewDataHandler(mock, testPolicy)

		rec := httptest.NewRecorder()
		handler.ListModels(rec, httptest.NewRequest(http.MethodGet, "http://test/api/models.json?benchmark=drop%20table", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Contains(t, body["error"], "Benchmark")
	})

	t.Run("fresh bypasses the cache", func(t *testing.T) {
		mock := &mockDataService{
			listFunc: func(context.Context, models.ModelQuery) []models.ModelRecord {
				t.Error("cached path must not be used")
				return nil
			},
			freshFunc: func(_ context.Context, q models.ModelQuery) ([]models.ModelRecord, error) {
				assert.True(t, q.Fresh)
				return []models.ModelRecord{{ID: "m1"}}, nil
			},
		}
		handler := NewDataHandler(mock, testPolicy)

		rec := httptest.NewRecorder()
		handler.ListModels(rec, httptest.NewRequest(http.MethodGet, "http://test/api/models.json?fresh=true", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	})

	t.Run("fresh rate limited returns 429", func(t *testing.T) {
		mock := &mockDataService{
			freshFunc: func(context.Context, models.ModelQuery) ([]models.ModelRecord, error) {
				return nil, huberrors.NewRateLimitedError("Too many refresh requests")
			},
		}
		handler := NewDataHandler(mock, testPolicy)

		rec := httptest.NewRecorder()
		handler.ListModels(rec, httptest.NewRequest(http.MethodGet, "http://test/api/models.json?fresh=1", nil))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.JSONEq(t, `{"error":"Too many refresh requests"}`, rec.Body.String())
	})

	t.Run("fresh failure returns a generic 500", func(t *testing.T) {
		mock := &mockDataService{
			freshFunc: func(context.Context, models.ModelQuery) ([]models.ModelRecord, error) {
				return nil, huberrors.NewUpstreamError("fetch snapshot", errors.New("aa_models: status 401: JWT expired"))
			},
		}
		handler := NewDataHandler(mock, testPolicy)

		rec := httptest.NewRecorder()
		handler.ListModels(rec, httptest.NewRequest(http.MethodGet, "http://test/api/models.json?fresh=true", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to fetch models"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "JWT")
	})
}

func TestDataHandler_ListBenchmarkRuns(t *testing.T) {
	mock := &mockDataService{
		runsFunc: func(_ context.Context, q models.RunQuery) []models.BenchmarkRun {
			assert.Equal(t, models.RunQuery{BenchmarkSlug: "gpqa", ModelVersion: "v1"}, q)
			return []models.BenchmarkRun{
				{ID: 1, ModelVersion: "v1", BenchmarkID: 99, BenchmarkName: strPtr("GPQA"), BenchmarkSlug: strPtr("gpqa")},
				{ID: 2, ModelVersion: "v1", BenchmarkID: 7},
			}
		},
	}
	handler := NewDataHandler(mock, testPolicy)

	rec := httptest.NewRecorder()
	handler.ListBenchmarkRuns(rec, httptest.NewRequest(http.MethodGet, "http://test/api/benchmark-runs.json?benchmark=gpqa&model_version=v1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testPolicy.Header(), rec.Header().Get("Cache-Control"))

	var body []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.Equal(t, "GPQA", body[0]["benchmark_name"])
	assert.NotContains(t, body[1], "benchmark_name")
	assert.NotContains(t, body[1], "benchmark_slug")
}

func TestDataHandler_collections(t *testing.T) {
	mock := &mockDataService{
		benchmarks: []models.BenchmarkDefinition{{ID: 99, Slug: "gpqa", Name: "GPQA"}},
	}
	handler := NewDataHandler(mock, testPolicy)

	rec := httptest.NewRecorder()
	handler.ListBenchmarks(rec, httptest.NewRequest(http.MethodGet, "http://test/api/benchmarks.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":99,"slug":"gpqa","name":"GPQA","description":null,"category":null,"source_url":null}]`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ListEpochModels(rec, httptest.NewRequest(http.MethodGet, "http://test/api/epoch-models.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
