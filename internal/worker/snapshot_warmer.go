// Package worker provides background workers for the statshub API.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/aistats/statshub/internal/models"
)

// SnapshotWarmService reads through the snapshot cache.
type SnapshotWarmService interface {
	Warm(ctx context.Context) models.SnapshotStatus
}

// SnapshotWarmer periodically reads the snapshot cache so that a due refresh
// happens in the background instead of on a user request.
type SnapshotWarmer struct {
	service  SnapshotWarmService
	interval time.Duration
}

// NewSnapshotWarmer creates a new snapshot warmer.
func NewSnapshotWarmer(service SnapshotWarmService, interval time.Duration) *SnapshotWarmer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &SnapshotWarmer{
		service:  service,
		interval: interval,
	}
}

// Start begins the background worker loop. It runs until the context is cancelled.
func (w *SnapshotWarmer) Start(ctx context.Context) {
	slog.Info("snapshot warmer started", "interval", w.interval)

	// Run immediately on startup
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("snapshot warmer stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SnapshotWarmer) runOnce(ctx context.Context) {
	status := w.service.Warm(ctx)

	switch {
	case status.Stale:
		slog.Warn("snapshot warm-up could not refresh; serving previous data",
			"state", status.State,
			"models", status.ModelCount,
		)
	case status.State == "refreshed":
		slog.Info("snapshot warm-up refreshed data",
			"models", status.ModelCount,
			"benchmark_runs", status.RunCount,
		)
	default:
		slog.Debug("snapshot warm-up found fresh data")
	}
}
