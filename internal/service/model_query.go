package service

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/aistats/statshub/internal/models"
)

// FilterModels returns the records matching q, in input order. Search is a
// case-insensitive substring of the name (a missing name matches as ""), and
// Benchmark keeps records whose field of that key is present and not null, so
// a score of 0 is kept. An empty criterion does not filter. records is not modified.
func FilterModels(records []models.ModelRecord, q models.ModelQuery) []models.ModelRecord {
	// A Caser keeps state; one per call keeps FilterModels safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(q.Search)

	out := make([]models.ModelRecord, 0, len(records))
	for _, rec := range records {
		if q.Search != "" {
			name := ""
			if rec.Name != nil {
				name = *rec.Name
			}

			if !strings.Contains(fold.String(name), needle) {
				continue
			}
		}

		if q.Benchmark != "" && !rec.HasValue(q.Benchmark) {
			continue
		}

		out = append(out, rec)
	}

	return out
}

// FilterRuns returns the runs matching q, in input order. BenchmarkSlug matches
// the resolved slug, so runs with a dangling benchmark reference never match a
// non-empty slug.
func FilterRuns(runs []models.BenchmarkRun, q models.RunQuery) []models.BenchmarkRun {
	out := make([]models.BenchmarkRun, 0, len(runs))
	for _, run := range runs {
		if q.BenchmarkSlug != "" && (run.BenchmarkSlug == nil || *run.BenchmarkSlug != q.BenchmarkSlug) {
			continue
		}

		if q.ModelVersion != "" && run.ModelVersion != q.ModelVersion {
			continue
		}

		out = append(out, run)
	}

	return out
}
