package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aistats/statshub/internal/huberrors"
	"github.com/aistats/statshub/internal/models"
)

// latestKey is the only row the service writes.
const latestKey = "latest"

const snapshotsSchema = `
	CREATE TABLE IF NOT EXISTS snapshots (
		key        TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)
`

// SnapshotRepository persists the last good snapshot as a single JSONB row.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// EnsureSchema creates the snapshots table if it does not exist.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, snapshotsSchema); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return nil
}

// Save replaces the stored snapshot.
func (r *SnapshotRepository) Save(ctx context.Context, snap *models.Snapshot, fetchedAt time.Time) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (key, payload, fetched_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET payload = EXCLUDED.payload, fetched_at = EXCLUDED.fetched_at, updated_at = now()
	`

	if _, err := r.db.Exec(ctx, query, latestKey, payload, fetchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LoadLatest returns the stored snapshot and its fetch time. It returns a
// NotFoundError when nothing has been saved yet.
func (r *SnapshotRepository) LoadLatest(ctx context.Context) (*models.Snapshot, time.Time, error) {
	query := `
		SELECT payload, fetched_at
		FROM snapshots
		WHERE key = $1
	`

	var (
		payload   []byte
		fetchedAt time.Time
	)

	err := r.db.QueryRow(ctx, query, latestKey).Scan(&payload, &fetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, time.Time{}, huberrors.NewNotFoundError("snapshot", "no snapshot has been stored")
		}
		return nil, time.Time{}, fmt.Errorf("failed to load snapshot: %w", err)
	}

	snap := models.EmptySnapshot()
	if err := json.Unmarshal(payload, snap); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to decode stored snapshot: %w", err)
	}

	return snap, fetchedAt, nil
}
