// Package main provides a CLI tool that asks a running statshub API to refresh
// its snapshot from upstream.
//
// Usage:
//
//	go run ./cmd/refresh
//
// Environment variables:
//   - STATSHUB_URL: base URL of the API (default: http://localhost:8080)
//   - API_KEY: admin API key configured on the server (required)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/aistats/statshub/internal/observability"
	"github.com/aistats/statshub/pkg/statsclient"
)

func main() {
	slog.SetDefault(observability.NewLogger(os.Stderr, "info"))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	baseURL := os.Getenv("STATSHUB_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		slog.Error("API_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := statsclient.NewClient(statsclient.ClientOptions{
		BaseURL:  baseURL,
		APIKey:   apiKey,
		RetryMax: 2,
	})

	status, err := client.Refresh(ctx)
	if err != nil {
		if statsclient.IsRateLimited(err) {
			slog.Warn("Refresh rejected; a refresh ran recently", "error", err)
		} else {
			slog.Error("Refresh failed", "error", err)
		}

		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Snapshot Refreshed")
	fmt.Println("==================")
	fmt.Printf("Models:          %d\n", status.ModelCount)
	fmt.Printf("Benchmarks:      %d\n", status.BenchmarkCount)
	fmt.Printf("Benchmark runs:  %d\n", status.RunCount)
	fmt.Printf("Epoch models:    %d\n", status.EpochCount)

	if status.FetchedAt != nil {
		fmt.Printf("Fetched at:      %s\n", status.FetchedAt.Format(time.RFC3339))
	}
}
