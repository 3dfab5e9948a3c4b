package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
	"github.com/aistats/statshub/internal/observability"
	pkgcache "github.com/aistats/statshub/pkg/cache"
)

// ModelQueryKey identifies a memoized filter result. Generation changes with
// every new snapshot, so entries never serve records of a replaced snapshot.
type ModelQueryKey struct {
	Generation uint64
	Search     string
	Benchmark  string
}

// ModelQueryKeyString serializes a ModelQueryKey for the loader cache.
func ModelQueryKeyString(k ModelQueryKey) string {
	return fmt.Sprintf("%d\x00%s\x00%s", k.Generation, k.Search, k.Benchmark)
}

// NewRefreshLimiter returns a limiter allowing one upstream-forcing operation per
// interval. A zero interval disables limiting.
func NewRefreshLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}

// SnapshotServiceParams configures SnapshotService. QueryCache, RefreshLimiter,
// CacheMetrics and Logger may be nil; Now defaults to time.Now.
type SnapshotServiceParams struct {
	Cache          *SnapshotCache
	Fetcher        SnapshotLoader
	QueryCache     *pkgcache.LoaderCache[ModelQueryKey, []models.ModelRecord]
	RefreshLimiter *rate.Limiter
	CacheMetrics   observability.CacheMetrics
	Logger         *slog.Logger
	Now            func() time.Time
}

// SnapshotService answers read queries from the cached snapshot.
type SnapshotService struct {
	cache          *SnapshotCache
	fetcher        SnapshotLoader
	queryCache     *pkgcache.LoaderCache[ModelQueryKey, []models.ModelRecord]
	refreshLimiter *rate.Limiter
	cacheMetrics   observability.CacheMetrics
	logger         *slog.Logger
	now            func() time.Time
}

// NewSnapshotService creates a SnapshotService.
func NewSnapshotService(p SnapshotServiceParams) *SnapshotService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := p.Now
	if now == nil {
		now = time.Now
	}

	limiter := p.RefreshLimiter
	if limiter == nil {
		limiter = NewRefreshLimiter(0)
	}

	return &SnapshotService{
		cache:          p.Cache,
		fetcher:        p.Fetcher,
		queryCache:     p.QueryCache,
		refreshLimiter: limiter,
		cacheMetrics:   p.CacheMetrics,
		logger:         logger,
		now:            now,
	}
}

// ListModels returns the cached snapshot's models filtered by q.
func (s *SnapshotService) ListModels(ctx context.Context, q models.ModelQuery) []models.ModelRecord {
	view := s.cache.Lookup(ctx, s.now())

	if s.queryCache == nil || view.Generation == 0 {
		return FilterModels(view.Snapshot.Models, q)
	}

	key := ModelQueryKey{Generation: view.Generation, Search: q.Search, Benchmark: q.Benchmark}
	load := func(_ context.Context, _ ModelQueryKey) ([]models.ModelRecord, error) {
		return FilterModels(view.Snapshot.Models, q), nil
	}

	// load never fails, so neither does the lookup.
	records, hit, _ := s.queryCache.GetWithStats(ctx, key, load)

	if s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, observability.CacheModelQuery)
		} else {
			s.cacheMetrics.RecordMiss(ctx, observability.CacheModelQuery)
		}
	}

	return records
}

// FetchFreshModels bypasses the cache: it fetches a new snapshot, installs it
// in the cache and returns its models filtered by q. It is rate limited.
func (s *SnapshotService) FetchFreshModels(ctx context.Context, q models.ModelQuery) ([]models.ModelRecord, error) {
	if !s.refreshLimiter.Allow() {
		return nil, huberrors.NewRateLimitedError("Too many refresh requests")
	}

	snap, err := s.fetcher.Fetch(ctx)
	if err != nil {
		if errors.Is(err, huberrors.ErrUpstream) {
			return nil, err
		}

		return nil, huberrors.NewUpstreamError("fetch snapshot", err)
	}

	s.cache.Store(ctx, snap, s.now())

	return FilterModels(snap.Models, q), nil
}

// Benchmarks returns the cached snapshot's benchmark definitions.
func (s *SnapshotService) Benchmarks(ctx context.Context) []models.BenchmarkDefinition {
	return s.cache.Get(ctx, s.now()).Benchmarks
}

// BenchmarkRuns returns the cached snapshot's benchmark runs filtered by q.
func (s *SnapshotService) BenchmarkRuns(ctx context.Context, q models.RunQuery) []models.BenchmarkRun {
	return FilterRuns(s.cache.Get(ctx, s.now()).BenchmarkRuns, q)
}

// EpochModels returns the cached snapshot's epoch models.
func (s *SnapshotService) EpochModels(ctx context.Context) []models.EpochModel {
	return s.cache.Get(ctx, s.now()).EpochModels
}

// Warm reads through the cache, refreshing the snapshot if it is due, and
// describes the result.
func (s *SnapshotService) Warm(ctx context.Context) models.SnapshotStatus {
	return s.status(s.cache.Lookup(ctx, s.now()))
}

// Status describes the held snapshot without refreshing it.
func (s *SnapshotService) Status(_ context.Context) models.SnapshotStatus {
	view, _ := s.cache.Peek(s.now())
	return s.status(view)
}

// Refresh invalidates the cache and reads through it. It is rate limited and
// fails with an UpstreamError when the refresh did not produce a new snapshot;
// the previous snapshot keeps being served in that case.
func (s *SnapshotService) Refresh(ctx context.Context) (models.SnapshotStatus, error) {
	if !s.refreshLimiter.Allow() {
		return models.SnapshotStatus{}, huberrors.NewRateLimitedError("Too many refresh requests")
	}

	s.cache.Invalidate()

	view := s.cache.Lookup(ctx, s.now())
	status := s.status(view)

	if view.State != pkgcache.StateRefreshed && view.State != pkgcache.StateFresh {
		return status, huberrors.NewUpstreamError("refresh snapshot", nil)
	}

	s.logger.InfoContext(ctx, "Snapshot refreshed on request", "generation", view.Generation)

	return status, nil
}

func (s *SnapshotService) status(view SnapshotView) models.SnapshotStatus {
	status := models.SnapshotStatus{
		Stale:          view.State == pkgcache.StateStale || view.State == pkgcache.StateEmpty,
		State:          view.State.String(),
		ModelCount:     len(view.Snapshot.Models),
		BenchmarkCount: len(view.Snapshot.Benchmarks),
		RunCount:       len(view.Snapshot.BenchmarkRuns),
		EpochCount:     len(view.Snapshot.EpochModels),
	}

	if !view.FetchedAt.IsZero() {
		fetchedAt := view.FetchedAt.UTC()
		age := s.now().Sub(view.FetchedAt).Seconds()
		status.FetchedAt = &fetchedAt
		status.AgeSeconds = &age
	}

	return status
}
