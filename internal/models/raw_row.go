package models

import "github.com/aistats/statshub/pkg/coerce"

// RawRow is one untyped row as returned by the upstream tabular service.
// Values are only read through the typed lookups below, which never fail.
type RawRow map[string]any

// Number returns the finite numeric value of key, or nil.
func (r RawRow) Number(key string) *float64 { return coerce.Number(r[key]) }

// String returns the trimmed non-empty string value of key, or nil.
func (r RawRow) String(key string) *string { return coerce.String(r[key]) }

// StringOrEmpty returns the string value of key, or "".
func (r RawRow) StringOrEmpty(key string) string { return coerce.StringOrEmpty(r[key]) }

// Int returns the integer identity stored under key, or 0.
func (r RawRow) Int(key string) int64 { return coerce.Int(r[key]) }

// Object returns the object stored under key, or nil.
func (r RawRow) Object(key string) map[string]any { return coerce.Object(r[key]) }

// RawSnapshot groups the raw rows of every collection of one snapshot before
// normalization.
type RawSnapshot struct {
	Models        []RawRow `json:"models" yaml:"models"`
	Benchmarks    []RawRow `json:"benchmarks" yaml:"benchmarks"`
	BenchmarkRuns []RawRow `json:"benchmark_runs" yaml:"benchmark_runs"`
	EpochModels   []RawRow `json:"epoch_models" yaml:"epoch_models"`
}
