package models

import "time"

// Snapshot is one consistent, point-in-time bundle of normalized records.
// A Snapshot is never mutated after construction.
type Snapshot struct {
	Models        []ModelRecord         `json:"models"`
	Benchmarks    []BenchmarkDefinition `json:"benchmarks"`
	BenchmarkRuns []BenchmarkRun        `json:"benchmark_runs"`
	EpochModels   []EpochModel          `json:"epoch_models"`
}

// EmptySnapshot returns a snapshot with no records. Its slices are non-nil so it
// serializes as empty arrays.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		Models:        []ModelRecord{},
		Benchmarks:    []BenchmarkDefinition{},
		BenchmarkRuns: []BenchmarkRun{},
		EpochModels:   []EpochModel{},
	}
}

// SnapshotStatus describes the snapshot currently served.
type SnapshotStatus struct {
	FetchedAt      *time.Time `json:"fetched_at"`
	AgeSeconds     *float64   `json:"age_seconds"`
	Stale          bool       `json:"stale"`
	State          string     `json:"state"`
	ModelCount     int        `json:"model_count"`
	BenchmarkCount int        `json:"benchmark_count"`
	RunCount       int        `json:"run_count"`
	EpochCount     int        `json:"epoch_model_count"`
}

// ModelQuery narrows a list of model records.
type ModelQuery struct {
	// Search is a case-insensitive substring of the model name.
	Search string `form:"search" validate:"omitempty,max=200,no_null_bytes"`
	// Benchmark is a field key that must be present and non-null.
	Benchmark string `form:"benchmark" validate:"omitempty,max=64,field_key"`
	// Fresh bypasses the cached snapshot.
	Fresh bool `form:"fresh"`
}

// RunQuery narrows a list of benchmark runs.
type RunQuery struct {
	BenchmarkSlug string `form:"benchmark" validate:"omitempty,max=128,no_null_bytes"`
	ModelVersion  string `form:"model_version" validate:"omitempty,max=256,no_null_bytes"`
}
