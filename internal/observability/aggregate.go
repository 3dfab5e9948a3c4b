package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all service metric collectors. When metrics are disabled, NewMetrics returns nil.
// Components accept the individual interfaces and already handle nil.
type Metrics struct {
	HTTP     HTTPMetrics
	Snapshot SnapshotMetrics
	Cache    CacheMetrics
}

// NewMetrics creates every collector from the given meter.
// Returns (nil, nil) when meter is nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	httpMetrics, err := NewHTTPMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("http metrics: %w", err)
	}

	snapshot, err := NewSnapshotMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("snapshot metrics: %w", err)
	}

	cache, err := NewCacheMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	return &Metrics{
		HTTP:     httpMetrics,
		Snapshot: snapshot,
		Cache:    cache,
	}, nil
}
