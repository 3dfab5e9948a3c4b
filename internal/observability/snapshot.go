package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SnapshotMetrics records upstream fetches and the age of the served snapshot.
type SnapshotMetrics interface {
	RecordFetch(ctx context.Context, outcome string, duration time.Duration)
	RecordStaleServed(ctx context.Context)
	SetFetchedAt(t time.Time)
}

type snapshotMetrics struct {
	fetches       metric.Int64Counter
	fetchDuration metric.Float64Histogram
	staleServed   metric.Int64Counter
	// fetchedAt is unix nanoseconds of the served snapshot; 0 means none.
	fetchedAt atomic.Int64
	now       func() time.Time
}

// NewSnapshotMetrics creates SnapshotMetrics and registers the age gauge.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewSnapshotMetrics(meter metric.Meter) (SnapshotMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	fetches, err := meter.Int64Counter(
		MetricNameSnapshotFetches,
		metric.WithDescription("Upstream snapshot fetches by outcome (success, upstream_error, missing_credentials, decode_error)"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create snapshot fetch counter: %w", err)
	}

	fetchDuration, err := meter.Float64Histogram(
		MetricNameSnapshotFetchDuration,
		metric.WithDescription("Time to fetch and normalize all collections of one snapshot (seconds)"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create snapshot fetch duration histogram: %w", err)
	}

	staleServed, err := meter.Int64Counter(
		MetricNameStaleServed,
		metric.WithDescription("Reads served from the previous snapshot because a refresh failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create stale served counter: %w", err)
	}

	m := &snapshotMetrics{
		fetches:       fetches,
		fetchDuration: fetchDuration,
		staleServed:   staleServed,
		now:           time.Now,
	}

	_, err = meter.Float64ObservableGauge(
		MetricNameSnapshotAge,
		metric.WithDescription("Age of the served snapshot in seconds (absent before the first snapshot)"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			ns := m.fetchedAt.Load()
			if ns == 0 {
				return nil
			}

			o.Observe(m.now().Sub(time.Unix(0, ns)).Seconds())

			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create snapshot age gauge: %w", err)
	}

	return m, nil
}

func attrOutcome(v string) attribute.KeyValue {
	return attribute.String(AttrOutcome, NormalizeOutcome(v))
}

func (m *snapshotMetrics) RecordFetch(ctx context.Context, outcome string, duration time.Duration) {
	m.fetches.Add(ctx, 1, metric.WithAttributes(attrOutcome(outcome)))
	m.fetchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrOutcome(outcome)))
}

func (m *snapshotMetrics) RecordStaleServed(ctx context.Context) {
	m.staleServed.Add(ctx, 1)
}

func (m *snapshotMetrics) SetFetchedAt(t time.Time) {
	if t.IsZero() {
		m.fetchedAt.Store(0)
		return
	}

	m.fetchedAt.Store(t.UnixNano())
}
