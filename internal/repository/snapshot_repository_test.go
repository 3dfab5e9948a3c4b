package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
	"github.com/aistats/statshub/pkg/database"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("statshub"),
		tcpostgres.WithUsername("statshub"),
		tcpostgres.WithPassword("statshub"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.NewPostgresPool(ctx, dsn, database.WithMaxConns(2))
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func TestSnapshotRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation is idempotent")

	t.Run("load before save is not found", func(t *testing.T) {
		_, _, err := repo.LoadLatest(ctx)
		assert.ErrorIs(t, err, huberrors.ErrNotFound)
	})

	name := "GPT-5"
	creator := "OpenAI"
	score := 0.0
	first := &models.Snapshot{
		Models: []models.ModelRecord{{
			ID: "m1", Name: &name, CreatorName: &creator, GPQA: &score,
			Evaluations: map[string]any{"intelligence": 70.0},
		}},
		Benchmarks:    []models.BenchmarkDefinition{{ID: 99, Slug: "gpqa", Name: "GPQA"}},
		BenchmarkRuns: []models.BenchmarkRun{{ID: 1, ModelVersion: "v1", BenchmarkID: 7}},
		EpochModels:   []models.EpochModel{},
	}
	fetchedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("save then load", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, first, fetchedAt))

		got, gotAt, err := repo.LoadLatest(ctx)
		require.NoError(t, err)
		assert.True(t, fetchedAt.Equal(gotAt))
		assert.Equal(t, first, got)
	})

	t.Run("save replaces the previous snapshot", func(t *testing.T) {
		second := models.EmptySnapshot()
		later := fetchedAt.Add(time.Hour)
		require.NoError(t, repo.Save(ctx, second, later))

		got, gotAt, err := repo.LoadLatest(ctx)
		require.NoError(t, err)
		assert.True(t, later.Equal(gotAt))
		assert.Empty(t, got.Models)
		assert.NotNil(t, got.Models)

		var rows int
		require.NoError(t, db.QueryRow(ctx, "SELECT count(*) FROM snapshots").Scan(&rows))
		assert.Equal(t, 1, rows)
	})
}
