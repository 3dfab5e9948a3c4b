// Package main provides a CLI tool that fetches one snapshot from upstream and
// persists it, so API instances start from current data instead of the seed file.
//
// Usage:
//
//	go run ./cmd/snapshot-backfill
//
// Environment variables:
//   - SUPABASE_URL, SUPABASE_ANON_KEY: upstream credentials (required)
//   - DATABASE_URL: PostgreSQL connection string (required)
//   - SNAPSHOT_INCLUDE_AUXILIARY: also fetch benchmarks, runs and epoch models (default: true)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aistats/statshub/internal/config"
	"github.com/aistats/statshub/internal/observability"
	"github.com/aistats/statshub/internal/repository"
	"github.com/aistats/statshub/internal/service"
	"github.com/aistats/statshub/pkg/database"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	slog.SetDefault(observability.NewLogger(os.Stdout, cfg.LogLevel))

	if !cfg.HasUpstreamCredentials() {
		slog.Error("SUPABASE_URL and SUPABASE_ANON_KEY are required")
		return 1
	}

	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout+time.Minute)
	defer cancel()

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithMaxConns(2))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return 1
	}
	defer db.Close()

	repo := repository.NewSnapshotRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		slog.Error("Failed to prepare snapshot table", "error", err)
		return 1
	}

	fetcher := service.NewSnapshotFetcher(service.SnapshotFetcherParams{
		BaseURL:          cfg.SupabaseURL,
		APIKey:           cfg.SupabaseAnonKey,
		IncludeAuxiliary: cfg.IncludeAuxiliary,
		Timeout:          cfg.UpstreamTimeout,
		Logger:           slog.Default(),
	})

	slog.Info("Fetching snapshot from upstream...")

	snap, err := fetcher.Fetch(ctx)
	if err != nil {
		slog.Error("Snapshot fetch failed", "error", err)
		return 1
	}

	fetchedAt := time.Now()
	if err := repo.Save(ctx, snap, fetchedAt); err != nil {
		slog.Error("Failed to persist snapshot", "error", err)
		return 1
	}

	fmt.Println()
	fmt.Println("Backfill Summary")
	fmt.Println("================")
	fmt.Printf("Models:          %d\n", len(snap.Models))
	fmt.Printf("Benchmarks:      %d\n", len(snap.Benchmarks))
	fmt.Printf("Benchmark runs:  %d\n", len(snap.BenchmarkRuns))
	fmt.Printf("Epoch models:    %d\n", len(snap.EpochModels))
	fmt.Println()

	slog.Info("Snapshot persisted", "fetched_at", fetchedAt)

	return 0
}
