package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
	"github.com/aistats/statshub/internal/normalize"
	"github.com/aistats/statshub/internal/observability"
	"github.com/aistats/statshub/pkg/postgrest"
)

// ErrMissingCredentials is returned by Fetch when the upstream URL or key is not configured.
var ErrMissingCredentials = errors.New("missing upstream URL or access key")

// Upstream tables.
const (
	TableModels        = "aa_models"
	TableBenchmarks    = "epoch_benchmarks"
	TableBenchmarkRuns = "epoch_benchmark_runs"
	TableEpochModels   = "epoch_models"
)

// Column projections and canonical orderings per table. The ordering is a
// display default only.
var (
	modelsSelect = postgrest.SelectOptions{
		Columns: []string{
			"id", "name", "slug", "creator_id", "creator_name", "creator_slug", "evaluations",
			"aa_intelligence_index", "aa_coding_index", "aa_math_index",
			"mmlu_pro", "gpqa", "hle", "livecodebench", "scicode", "math_500", "aime",
			"pricing", "price_1m_blended_3_to_1", "price_1m_input_tokens", "price_1m_output_tokens",
			"median_output_tokens_per_second", "median_time_to_first_token_seconds",
			"median_time_to_first_answer_token", "first_seen", "last_seen",
		},
		Order: []postgrest.Order{{Column: "aa_intelligence_index", Descending: true, NullsLast: true}},
	}
	benchmarksSelect = postgrest.SelectOptions{
		Columns: []string{"id", "slug", "name", "description", "category", "source_url"},
		Order:   []postgrest.Order{{Column: "name"}},
	}
	benchmarkRunsSelect = postgrest.SelectOptions{
		Columns: []string{"id", "model_version", "benchmark_id", "score", "release_date", "organization", "country", "stderr"},
		Order:   []postgrest.Order{{Column: "score", Descending: true, NullsLast: true}},
	}
	epochModelsSelect = postgrest.SelectOptions{
		Columns: []string{
			"id", "model_version", "model_name", "display_name", "organization", "country",
			"model_accessibility", "release_date", "eci_score", "training_compute_flop",
			"training_compute_confidence", "description",
		},
		Order: []postgrest.Order{{Column: "eci_score", Descending: true, NullsLast: true}},
	}
)

// TableReader reads all rows of one upstream table.
type TableReader interface {
	Select(ctx context.Context, table string, opts postgrest.SelectOptions, dst any) error
}

// SnapshotFetcherParams configures a SnapshotFetcher. Reader is built from BaseURL,
// APIKey and Timeout when nil. Metrics and Logger may be nil.
type SnapshotFetcherParams struct {
	BaseURL          string
	APIKey           string
	IncludeAuxiliary bool
	Timeout          time.Duration
	Reader           TableReader
	Metrics          observability.SnapshotMetrics
	Logger           *slog.Logger
}

// SnapshotFetcher loads one complete snapshot from the upstream service.
type SnapshotFetcher struct {
	hasCredentials   bool
	includeAuxiliary bool
	reader           TableReader
	metrics          observability.SnapshotMetrics
	logger           *slog.Logger
}

// NewSnapshotFetcher creates a SnapshotFetcher.
func NewSnapshotFetcher(p SnapshotFetcherParams) *SnapshotFetcher {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reader := p.Reader
	if reader == nil {
		reader = postgrest.NewClient(postgrest.ClientOptions{
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Timeout: p.Timeout,
		})
	}

	return &SnapshotFetcher{
		hasCredentials:   p.BaseURL != "" && p.APIKey != "",
		includeAuxiliary: p.IncludeAuxiliary,
		reader:           reader,
		metrics:          p.Metrics,
		logger:           logger,
	}
}

type fetchTask struct {
	table string
	opts  postgrest.SelectOptions
	dst   *[]models.RawRow
}

// Fetch requests every collection concurrently and returns the normalized
// snapshot. If any request fails no snapshot is returned: the error is logged as
// a warning and callers keep using the data they already have. Missing
// credentials fail with ErrMissingCredentials before any request is made.
func (f *SnapshotFetcher) Fetch(ctx context.Context) (*models.Snapshot, error) {
	start := time.Now()

	if !f.hasCredentials {
		f.logger.WarnContext(ctx, "Missing upstream URL or access key; skipping live refresh")
		f.recordFetch(ctx, observability.OutcomeMissingCredentials, start)

		return nil, ErrMissingCredentials
	}

	ctx, span := observability.StartSpan(ctx, "snapshot.fetch")
	defer span.End()

	var raw models.RawSnapshot

	tasks := []fetchTask{{TableModels, modelsSelect, &raw.Models}}
	if f.includeAuxiliary {
		tasks = append(tasks,
			fetchTask{TableEpochModels, epochModelsSelect, &raw.EpochModels},
			fetchTask{TableBenchmarks, benchmarksSelect, &raw.Benchmarks},
			fetchTask{TableBenchmarkRuns, benchmarkRunsSelect, &raw.BenchmarkRuns},
		)
	}

	// Not WithContext: a failed request does not cancel the others.
	var g errgroup.Group

	errs := make([]error, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			if err := f.reader.Select(ctx, task.table, task.opts, task.dst); err != nil {
				errs[i] = fmt.Errorf("%s: %w", task.table, err)
				return errs[i]
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		joined := errors.Join(errs...)

		outcome := observability.OutcomeUpstreamError
		if errors.Is(joined, postgrest.ErrDecode) {
			outcome = observability.OutcomeDecodeError
		}

		span.RecordError(joined)
		f.recordFetch(ctx, outcome, start)
		f.logger.WarnContext(ctx, "Failed to fetch live snapshot; keeping previous snapshot",
			"requests", len(tasks),
			"error", joined,
		)

		return nil, huberrors.NewUpstreamError("fetch snapshot", joined)
	}

	snap := normalize.Snapshot(raw)

	f.recordFetch(ctx, observability.OutcomeSuccess, start)
	f.logger.InfoContext(ctx, "Fetched live snapshot",
		"models", len(snap.Models),
		"benchmarks", len(snap.Benchmarks),
		"benchmark_runs", len(snap.BenchmarkRuns),
		"epoch_models", len(snap.EpochModels),
		"duration", time.Since(start),
	)

	return snap, nil
}

func (f *SnapshotFetcher) recordFetch(ctx context.Context, outcome string, start time.Time) {
	if f.metrics != nil {
		f.metrics.RecordFetch(ctx, outcome, time.Since(start))
	}
}
