package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

type scriptedLoader struct {
	calls atomic.Int32
	mu    sync.Mutex
	fail  bool
	next  int
}

func (l *scriptedLoader) load(_ context.Context) (int, error) {
	l.calls.Add(1)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fail {
		return 0, errUpstream
	}

	l.next++

	return l.next, nil
}

func (l *scriptedLoader) setFail(fail bool) {
	l.mu.Lock()
	l.fail = fail
	l.mu.Unlock()
}

func TestStaleCache_first_read_loads(t *testing.T) {
	loader := &scriptedLoader{}
	c := NewStaleCache(time.Hour, loader.load)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	e, state, ok := c.Get(context.Background(), t0)
	if !ok || state != StateRefreshed {
		t.Fatalf("state = %v ok = %v", state, ok)
	}

	if e.Value != 1 || !e.FetchedAt.Equal(t0) || e.Generation != 1 {
		t.Errorf("unexpected entry %+v", e)
	}
}

func TestStaleCache_fresh_within_window(t *testing.T) {
	loader := &scriptedLoader{}
	c := NewStaleCache(6*time.Hour, loader.load)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	first, _, _ := c.Get(ctx, t0)
	second, state, _ := c.Get(ctx, t0.Add(5*time.Hour))

	if state != StateFresh {
		t.Errorf("state = %v", state)
	}

	if first != second {
		t.Errorf("reads within the window differ: %+v vs %+v", first, second)
	}

	if loader.calls.Load() != 1 {
		t.Errorf("calls = %d", loader.calls.Load())
	}
}

func TestStaleCache_refreshes_once_after_window(t *testing.T) {
	loader := &scriptedLoader{}
	c := NewStaleCache(6*time.Hour, loader.load)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	c.Get(ctx, t0)

	later := t0.Add(6*time.Hour + time.Second)
	e, state, _ := c.Get(ctx, later)
	if state != StateRefreshed || e.Value != 2 || !e.FetchedAt.Equal(later) {
		t.Errorf("state = %v entry = %+v", state, e)
	}

	c.Get(ctx, later.Add(time.Minute))

	if loader.calls.Load() != 2 {
		t.Errorf("calls = %d", loader.calls.Load())
	}
}

func TestStaleCache_serves_previous_on_failure(t *testing.T) {
	loader := &scriptedLoader{}
	c := NewStaleCache(time.Hour, loader.load)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	good, _, _ := c.Get(ctx, t0)

	loader.setFail(true)

	e, state, ok := c.Get(ctx, t0.Add(2*time.Hour))
	if !ok || state != StateStale {
		t.Fatalf("state = %v ok = %v", state, ok)
	}

	if e != good {
		t.Errorf("previous entry should be served unchanged: %+v vs %+v", e, good)
	}

	// The failed refresh does not extend freshness; the next read tries again.
	c.Get(ctx, t0.Add(2*time.Hour+time.Second))
	if loader.calls.Load() != 3 {
		t.Errorf("calls = %d", loader.calls.Load())
	}
}

func TestStaleCache_empty_when_never_loaded(t *testing.T) {
	loader := &scriptedLoader{}
	loader.setFail(true)
	c := NewStaleCache(time.Hour, loader.load)

	e, state, ok := c.Get(context.Background(), time.Now())
	if ok || state != StateEmpty {
		t.Errorf("state = %v ok = %v", state, ok)
	}

	if e.Value != 0 || e.Generation != 0 {
		t.Errorf("unexpected entry %+v", e)
	}

	if _, ok := c.Peek(); ok {
		t.Error("Peek should report no value")
	}
}

func TestStaleCache_Invalidate_keeps_fallback(t *testing.T) {
	loader := &scriptedLoader{}
	c := NewStaleCache(time.Hour, loader.load)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	c.Get(ctx, t0)
	c.Invalidate()

	if !c.Expired(t0) {
		t.Error("invalidated entry should be expired")
	}

	loader.setFail(true)

	e, state, _ := c.Get(ctx, t0.Add(time.Minute))
	if state != StateStale || e.Value != 1 {
		t.Errorf("state = %v entry = %+v", state, e)
	}

	loader.setFail(false)

	e, state, _ = c.Get(ctx, t0.Add(2*time.Minute))
	if state != StateRefreshed || e.Value != 2 || e.Generation != 2 {
		t.Errorf("state = %v entry = %+v", state, e)
	}

	// Invalidating an empty cache is a no-op.
	NewStaleCache(time.Hour, loader.load).Invalidate()
}

func TestStaleCache_Invalidate_spares_entry_stored_concurrently(t *testing.T) {
	loader := &scriptedLoader{}
	c := NewStaleCache(time.Hour, loader.load)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	held := c.Store(1, t0)

	// A refresh lands between Invalidate reading the held entry and marking it.
	replaced := c.Store(2, t0.Add(time.Minute))
	c.invalidateGeneration(held.Generation)

	if c.Expired(t0.Add(2 * time.Minute)) {
		t.Fatal("entry stored after the invalidated one should stay fresh")
	}

	e, state, _ := c.Get(context.Background(), t0.Add(2*time.Minute))
	if state != StateFresh || e != replaced {
		t.Errorf("state = %v entry = %+v", state, e)
	}

	if loader.calls.Load() != 0 {
		t.Errorf("no extra load expected, calls = %d", loader.calls.Load())
	}
}

func TestStaleCache_WithInitial(t *testing.T) {
	loader := &scriptedLoader{}
	loader.setFail(true)
	c := NewStaleCache(time.Hour, loader.load, WithInitial(100, time.Time{}))

	e, state, ok := c.Get(context.Background(), time.Now())
	if !ok || state != StateStale || e.Value != 100 {
		t.Errorf("state = %v ok = %v entry = %+v", state, ok, e)
	}

	if loader.calls.Load() != 1 {
		t.Errorf("a zero fetch time should force a load attempt, calls = %d", loader.calls.Load())
	}

	fetched := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	warm := NewStaleCache(time.Hour, loader.load, WithInitial(7, fetched))

	e, state, _ = warm.Get(context.Background(), fetched.Add(time.Minute))
	if state != StateFresh || e.Value != 7 {
		t.Errorf("state = %v entry = %+v", state, e)
	}
}

func TestStaleCache_Store(t *testing.T) {
	loader := &scriptedLoader{}
	c := NewStaleCache(time.Hour, loader.load)
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	stored := c.Store(55, t0)

	e, state, _ := c.Get(context.Background(), t0.Add(time.Minute))
	if state != StateFresh || e != stored {
		t.Errorf("state = %v entry = %+v", state, e)
	}

	if loader.calls.Load() != 0 {
		t.Errorf("calls = %d", loader.calls.Load())
	}
}

func TestStaleCache_concurrent_readers_share_refresh(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32

	c := NewStaleCache(time.Hour, func(_ context.Context) (int, error) {
		calls.Add(1)
		<-release

		return 9, nil
	})

	now := time.Now()

	var started, wg sync.WaitGroup
	for range 8 {
		started.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()

			e, _, ok := c.Get(context.Background(), now)
			if !ok || e.Value != 9 {
				t.Errorf("ok = %v entry = %+v", ok, e)
			}
		}()
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// Readers that overlap the in-flight load share it; late readers see a fresh value.
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d", n)
	}
}

func TestStaleCache_canceled_caller_does_not_abort_load(t *testing.T) {
	c := NewStaleCache(time.Hour, func(ctx context.Context) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, state, _ := c.Get(ctx, time.Now()); state != StateRefreshed {
		t.Errorf("state = %v", state)
	}
}
