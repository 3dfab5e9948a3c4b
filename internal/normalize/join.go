package normalize

import "github.com/aistats/statshub/internal/models"

// BenchmarkIndex resolves benchmark IDs to their definitions.
type BenchmarkIndex struct {
	byID map[int64]models.BenchmarkDefinition
}

// NewBenchmarkIndex indexes defs by ID. When IDs repeat, the later definition wins.
func NewBenchmarkIndex(defs []models.BenchmarkDefinition) *BenchmarkIndex {
	byID := make(map[int64]models.BenchmarkDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
	}
	return &BenchmarkIndex{byID: byID}
}

// Lookup returns the definition with the given ID.
func (idx *BenchmarkIndex) Lookup(id int64) (models.BenchmarkDefinition, bool) {
	def, ok := idx.byID[id]
	return def, ok
}

// Len returns the number of distinct benchmark IDs.
func (idx *BenchmarkIndex) Len() int {
	return len(idx.byID)
}

// Run normalizes one benchmark run row and copies the name and slug of the
// definition it references. A dangling reference leaves both nil.
func (idx *BenchmarkIndex) Run(row models.RawRow) models.BenchmarkRun {
	run := models.BenchmarkRun{
		ID:           row.Int("id"),
		ModelVersion: row.StringOrEmpty("model_version"),
		BenchmarkID:  row.Int("benchmark_id"),
		Score:        row.Number("score"),
		ReleaseDate:  row.String("release_date"),
		Organization: row.String("organization"),
		Country:      row.String("country"),
		Stderr:       row.Number("stderr"),
	}

	if def, ok := idx.Lookup(run.BenchmarkID); ok {
		name, slug := def.Name, def.Slug
		run.BenchmarkName = &name
		run.BenchmarkSlug = &slug
	}

	return run
}

// ResolveRuns normalizes and resolves every run row, preserving order.
func (idx *BenchmarkIndex) ResolveRuns(rows []models.RawRow) []models.BenchmarkRun {
	return mapRows(rows, idx.Run)
}
