// Package normalize maps raw upstream rows onto the strict record types of
// package models. Normalizers never fail and never drop a row: a field that
// cannot be interpreted becomes nil.
package normalize

import "github.com/aistats/statshub/internal/models"

// Model normalizes one row of the model collection.
func Model(row models.RawRow) models.ModelRecord {
	return models.ModelRecord{
		ID:          row.StringOrEmpty("id"),
		Name:        row.String("name"),
		Slug:        row.String("slug"),
		CreatorID:   row.String("creator_id"),
		CreatorName: row.String("creator_name"),
		CreatorSlug: row.String("creator_slug"),
		Evaluations: row.Object("evaluations"),

		AAIntelligenceIndex: row.Number("aa_intelligence_index"),
		AACodingIndex:       row.Number("aa_coding_index"),
		AAMathIndex:         row.Number("aa_math_index"),
		MMLUPro:             row.Number("mmlu_pro"),
		GPQA:                row.Number("gpqa"),
		HLE:                 row.Number("hle"),
		LiveCodeBench:       row.Number("livecodebench"),
		SciCode:             row.Number("scicode"),
		Math500:             row.Number("math_500"),
		AIME:                row.Number("aime"),

		Pricing:              row.Object("pricing"),
		PriceBlended3To1:     row.Number("price_1m_blended_3_to_1"),
		PriceInputTokens:     row.Number("price_1m_input_tokens"),
		PriceOutputTokens:    row.Number("price_1m_output_tokens"),
		OutputTokensPerSec:   row.Number("median_output_tokens_per_second"),
		TimeToFirstToken:     row.Number("median_time_to_first_token_seconds"),
		TimeToFirstAnswerTok: row.Number("median_time_to_first_answer_token"),

		FirstSeen: row.StringOrEmpty("first_seen"),
		LastSeen:  row.StringOrEmpty("last_seen"),
	}
}

// Benchmark normalizes one row of the benchmark-definition collection.
func Benchmark(row models.RawRow) models.BenchmarkDefinition {
	return models.BenchmarkDefinition{
		ID:          row.Int("id"),
		Slug:        row.StringOrEmpty("slug"),
		Name:        row.StringOrEmpty("name"),
		Description: row.String("description"),
		Category:    row.String("category"),
		SourceURL:   row.String("source_url"),
	}
}

// EpochModel normalizes one row of the epoch model collection.
func EpochModel(row models.RawRow) models.EpochModel {
	return models.EpochModel{
		ID:                        row.Int("id"),
		ModelVersion:              row.StringOrEmpty("model_version"),
		ModelName:                 row.String("model_name"),
		DisplayName:               row.String("display_name"),
		Organization:              row.String("organization"),
		Country:                   row.String("country"),
		ModelAccessibility:        row.String("model_accessibility"),
		ReleaseDate:               row.String("release_date"),
		ECIScore:                  row.Number("eci_score"),
		TrainingComputeFLOP:       row.Number("training_compute_flop"),
		TrainingComputeConfidence: row.String("training_compute_confidence"),
		Description:               row.String("description"),
	}
}

// Models normalizes every row of the model collection, preserving order.
func Models(rows []models.RawRow) []models.ModelRecord {
	return mapRows(rows, Model)
}

// Benchmarks normalizes every row of the benchmark-definition collection.
func Benchmarks(rows []models.RawRow) []models.BenchmarkDefinition {
	return mapRows(rows, Benchmark)
}

// EpochModels normalizes every row of the epoch model collection.
func EpochModels(rows []models.RawRow) []models.EpochModel {
	return mapRows(rows, EpochModel)
}

// Snapshot normalizes all collections of raw and resolves run references. The
// benchmark index is built only after every definition has been normalized.
func Snapshot(raw models.RawSnapshot) *models.Snapshot {
	benchmarks := Benchmarks(raw.Benchmarks)
	index := NewBenchmarkIndex(benchmarks)

	return &models.Snapshot{
		Models:        Models(raw.Models),
		Benchmarks:    benchmarks,
		BenchmarkRuns: index.ResolveRuns(raw.BenchmarkRuns),
		EpochModels:   EpochModels(raw.EpochModels),
	}
}

func mapRows[T any](rows []models.RawRow, fn func(models.RawRow) T) []T {
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		out = append(out, fn(row))
	}
	return out
}
