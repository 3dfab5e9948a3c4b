package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aistats/statshub/internal/models"
	"github.com/aistats/statshub/internal/observability"
	"github.com/aistats/statshub/pkg/cache"
)

var errNoSnapshot = errors.New("loader returned no snapshot")

// SnapshotLoader produces a complete snapshot or an error.
type SnapshotLoader interface {
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// SnapshotStore persists the last good snapshot.
type SnapshotStore interface {
	Save(ctx context.Context, snap *models.Snapshot, fetchedAt time.Time) error
	LoadLatest(ctx context.Context) (*models.Snapshot, time.Time, error)
}

// SnapshotView is the result of one cache read.
type SnapshotView struct {
	Snapshot *models.Snapshot
	// FetchedAt is zero when no snapshot was ever obtained or the held one was seeded without a time.
	FetchedAt  time.Time
	Generation uint64
	State      cache.State
}

// SnapshotCacheParams configures a SnapshotCache. Initial seeds the cache with a
// known-good snapshot (fetched at InitialFetchedAt, which may be zero).
// Store, Metrics, CacheMetrics and Logger may be nil.
type SnapshotCacheParams struct {
	Loader           SnapshotLoader
	TTL              time.Duration
	Initial          *models.Snapshot
	InitialFetchedAt time.Time
	Store            SnapshotStore
	Metrics          observability.SnapshotMetrics
	CacheMetrics     observability.CacheMetrics
	Logger           *slog.Logger
}

// SnapshotCache is the single owner of the served snapshot. A read older than
// the TTL triggers one refresh; a failed refresh keeps serving the previous
// snapshot, and a cache that never obtained one serves the empty snapshot.
type SnapshotCache struct {
	cache        *cache.StaleCache[*models.Snapshot]
	loader       SnapshotLoader
	store        SnapshotStore
	metrics      observability.SnapshotMetrics
	cacheMetrics observability.CacheMetrics
	logger       *slog.Logger
}

// NewSnapshotCache creates a SnapshotCache.
func NewSnapshotCache(p SnapshotCacheParams) *SnapshotCache {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &SnapshotCache{
		loader:       p.Loader,
		store:        p.Store,
		metrics:      p.Metrics,
		cacheMetrics: p.CacheMetrics,
		logger:       logger,
	}

	var opts []cache.StaleCacheOption[*models.Snapshot]
	if p.Initial != nil {
		opts = append(opts, cache.WithInitial(p.Initial, p.InitialFetchedAt))
		if c.metrics != nil && !p.InitialFetchedAt.IsZero() {
			c.metrics.SetFetchedAt(p.InitialFetchedAt)
		}
	}

	c.cache = cache.NewStaleCache(p.TTL, c.load, opts...)

	return c
}

// load runs inside the cache's single refresh slot; the snapshot is persisted
// there so concurrent readers sharing the refresh do not save it repeatedly.
func (c *SnapshotCache) load(ctx context.Context) (*models.Snapshot, error) {
	snap, err := c.loader.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, errNoSnapshot
	}

	if c.store != nil {
		if err := c.store.Save(ctx, snap, time.Now()); err != nil {
			c.logger.ErrorContext(ctx, "Failed to persist snapshot", "error", err)
		}
	}

	return snap, nil
}

// Get returns the snapshot to serve at now. It never returns nil.
func (c *SnapshotCache) Get(ctx context.Context, now time.Time) *models.Snapshot {
	return c.Lookup(ctx, now).Snapshot
}

// Lookup is Get with the fetch time, generation and how the read was served.
func (c *SnapshotCache) Lookup(ctx context.Context, now time.Time) SnapshotView {
	entry, state, ok := c.cache.Get(ctx, now)
	c.record(ctx, state, entry.FetchedAt)

	if !ok {
		return SnapshotView{Snapshot: models.EmptySnapshot(), State: state}
	}

	return SnapshotView{
		Snapshot:   entry.Value,
		FetchedAt:  entry.FetchedAt,
		Generation: entry.Generation,
		State:      state,
	}
}

// Peek returns the held snapshot without refreshing. State is StateStale when a
// read at now would refresh.
func (c *SnapshotCache) Peek(now time.Time) (SnapshotView, bool) {
	entry, ok := c.cache.Peek()
	if !ok {
		return SnapshotView{Snapshot: models.EmptySnapshot(), State: cache.StateEmpty}, false
	}

	state := cache.StateFresh
	if c.cache.Expired(now) {
		state = cache.StateStale
	}

	return SnapshotView{
		Snapshot:   entry.Value,
		FetchedAt:  entry.FetchedAt,
		Generation: entry.Generation,
		State:      state,
	}, true
}

// Store replaces the held snapshot with one fetched outside the cache.
func (c *SnapshotCache) Store(ctx context.Context, snap *models.Snapshot, fetchedAt time.Time) SnapshotView {
	entry := c.cache.Store(snap, fetchedAt)
	if c.metrics != nil {
		c.metrics.SetFetchedAt(fetchedAt)
	}

	if c.store != nil {
		if err := c.store.Save(ctx, snap, fetchedAt); err != nil {
			c.logger.ErrorContext(ctx, "Failed to persist snapshot", "error", err)
		}
	}

	return SnapshotView{
		Snapshot:   entry.Value,
		FetchedAt:  entry.FetchedAt,
		Generation: entry.Generation,
		State:      cache.StateRefreshed,
	}
}

// Invalidate makes the next read refresh. The held snapshot stays available
// as the fallback if that refresh fails.
func (c *SnapshotCache) Invalidate() {
	c.cache.Invalidate()
}

// TTL returns the freshness window.
func (c *SnapshotCache) TTL() time.Duration {
	return c.cache.TTL()
}

func (c *SnapshotCache) record(ctx context.Context, state cache.State, fetchedAt time.Time) {
	if c.cacheMetrics != nil {
		if state == cache.StateFresh {
			c.cacheMetrics.RecordHit(ctx, observability.CacheSnapshot)
		} else {
			c.cacheMetrics.RecordMiss(ctx, observability.CacheSnapshot)
		}
	}

	if c.metrics == nil {
		return
	}

	switch state {
	case cache.StateRefreshed:
		c.metrics.SetFetchedAt(fetchedAt)
	case cache.StateStale:
		c.metrics.RecordStaleServed(ctx)
	}
}
