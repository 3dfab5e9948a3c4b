package cache

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// State describes how a StaleCache read was served.
type State int

const (
	// StateFresh means the cached value was within its freshness window.
	StateFresh State = iota
	// StateRefreshed means a load ran during the read and succeeded.
	StateRefreshed
	// StateStale means a load failed and the previous value was served.
	StateStale
	// StateEmpty means a load failed and there was no previous value.
	StateEmpty
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateRefreshed:
		return "refreshed"
	case StateStale:
		return "stale"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Entry is one value held by a StaleCache.
type Entry[V any] struct {
	Value     V
	FetchedAt time.Time
	// Generation increases every time a new value is stored.
	Generation uint64

	invalidated bool
}

// Loader produces a new value for a StaleCache.
type Loader[V any] func(ctx context.Context) (V, error)

// StaleCache holds a single value with a freshness window. A read of an
// expired or invalidated value runs the loader once (concurrent readers share
// that run); if the loader fails the previous value keeps being served.
// The held entry is replaced as a whole, so readers never observe a partial update.
type StaleCache[V any] struct {
	ttl     time.Duration
	load    Loader[V]
	current atomic.Pointer[Entry[V]]
	gen     atomic.Uint64
	group   singleflight.Group
}

// StaleCacheOption configures a StaleCache.
type StaleCacheOption[V any] func(*StaleCache[V])

// WithInitial installs value as if it had been loaded at fetchedAt. A zero
// fetchedAt makes the first read attempt a load while still having value to
// fall back on.
func WithInitial[V any](value V, fetchedAt time.Time) StaleCacheOption[V] {
	return func(c *StaleCache[V]) {
		c.store(value, fetchedAt)
	}
}

// NewStaleCache creates a cache whose values are fresh for ttl.
func NewStaleCache[V any](ttl time.Duration, load Loader[V], opts ...StaleCacheOption[V]) *StaleCache[V] {
	c := &StaleCache[V]{ttl: ttl, load: load}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// TTL returns the freshness window.
func (c *StaleCache[V]) TTL() time.Duration {
	return c.ttl
}

// Get returns the current value, loading a new one first when the held value is
// missing, invalidated, or older than the freshness window at now. ok is false
// only for StateEmpty.
func (c *StaleCache[V]) Get(ctx context.Context, now time.Time) (entry Entry[V], state State, ok bool) {
	if e := c.current.Load(); c.isFresh(e, now) {
		return *e, StateFresh, true
	}

	// The load is shared by every waiting reader, so it must outlive the
	// caller that happened to start it.
	loadCtx := context.WithoutCancel(ctx)

	res, _, _ := c.group.Do("refresh", func() (any, error) {
		if e := c.current.Load(); c.isFresh(e, now) {
			return refreshResult[V]{entry: e, state: StateFresh}, nil
		}

		value, err := c.load(loadCtx)
		if err != nil {
			if e := c.current.Load(); e != nil {
				return refreshResult[V]{entry: e, state: StateStale}, nil
			}
			return refreshResult[V]{state: StateEmpty}, nil
		}

		return refreshResult[V]{entry: c.store(value, now), state: StateRefreshed}, nil
	})

	r := res.(refreshResult[V])
	if r.entry == nil {
		return Entry[V]{}, StateEmpty, false
	}

	return *r.entry, r.state, true
}

// Peek returns the held value without loading.
func (c *StaleCache[V]) Peek() (Entry[V], bool) {
	e := c.current.Load()
	if e == nil {
		return Entry[V]{}, false
	}
	return *e, true
}

// Expired reports whether a read at now would attempt a load.
func (c *StaleCache[V]) Expired(now time.Time) bool {
	return !c.isFresh(c.current.Load(), now)
}

// Store replaces the held value with one obtained outside the cache.
func (c *StaleCache[V]) Store(value V, fetchedAt time.Time) Entry[V] {
	return *c.store(value, fetchedAt)
}

// Invalidate forces the next read to attempt a load. The held value is kept as
// the fallback for that load.
func (c *StaleCache[V]) Invalidate() {
	if held := c.current.Load(); held != nil {
		c.invalidateGeneration(held.Generation)
	}
}

// invalidateGeneration marks the held entry only while it is still gen, so an
// entry stored by a concurrent refresh stays fresh.
func (c *StaleCache[V]) invalidateGeneration(gen uint64) {
	for {
		e := c.current.Load()
		if e == nil || e.invalidated || e.Generation != gen {
			return
		}

		marked := *e
		marked.invalidated = true
		if c.current.CompareAndSwap(e, &marked) {
			return
		}
	}
}

func (c *StaleCache[V]) isFresh(e *Entry[V], now time.Time) bool {
	if e == nil || e.invalidated || e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) <= c.ttl
}

func (c *StaleCache[V]) store(value V, fetchedAt time.Time) *Entry[V] {
	e := &Entry[V]{
		Value:      value,
		FetchedAt:  fetchedAt,
		Generation: c.gen.Add(1),
	}
	c.current.Store(e)
	return e
}

type refreshResult[V any] struct {
	entry *Entry[V]
	state State
}
