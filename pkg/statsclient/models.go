package statsclient

import "time"

// SnapshotStatus describes the snapshot a server currently serves.
type SnapshotStatus struct {
	// FetchedAt is nil when the server only holds seed data or nothing at all.
	FetchedAt      *time.Time `json:"fetched_at"`
	AgeSeconds     *float64   `json:"age_seconds"`
	Stale          bool       `json:"stale"`
	State          string     `json:"state"`
	ModelCount     int        `json:"model_count"`
	BenchmarkCount int        `json:"benchmark_count"`
	RunCount       int        `json:"run_count"`
	EpochCount     int        `json:"epoch_model_count"`
}
