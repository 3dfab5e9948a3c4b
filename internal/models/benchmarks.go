package models

// BenchmarkDefinition describes one benchmark that runs refer to by ID.
type BenchmarkDefinition struct {
	ID          int64   `json:"id"`
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	SourceURL   *string `json:"source_url"`
}

// BenchmarkRun is one score of a model version on a benchmark.
// BenchmarkName and BenchmarkSlug are copied from the referenced definition and
// stay nil when BenchmarkID does not resolve.
type BenchmarkRun struct {
	ID            int64    `json:"id"`
	ModelVersion  string   `json:"model_version"`
	BenchmarkID   int64    `json:"benchmark_id"`
	Score         *float64 `json:"score"`
	ReleaseDate   *string  `json:"release_date"`
	Organization  *string  `json:"organization"`
	Country       *string  `json:"country"`
	Stderr        *float64 `json:"stderr"`
	BenchmarkName *string  `json:"benchmark_name,omitempty"`
	BenchmarkSlug *string  `json:"benchmark_slug,omitempty"`
}

// EpochModel is a model version as tracked by the benchmark-run collections.
type EpochModel struct {
	ID                        int64    `json:"id"`
	ModelVersion              string   `json:"model_version"`
	ModelName                 *string  `json:"model_name"`
	DisplayName               *string  `json:"display_name"`
	Organization              *string  `json:"organization"`
	Country                   *string  `json:"country"`
	ModelAccessibility        *string  `json:"model_accessibility"`
	ReleaseDate               *string  `json:"release_date"`
	ECIScore                  *float64 `json:"eci_score"`
	TrainingComputeFLOP       *float64 `json:"training_compute_flop"`
	TrainingComputeConfidence *string  `json:"training_compute_confidence"`
	Description               *string  `json:"description"`
}
