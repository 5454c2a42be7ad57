package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository stores immutable table captures. Entries travel as one
// JSON blob per snapshot; a snapshot is never updated after creation.
type SnapshotRepository interface {
	Create(ctx context.Context, exec SQLExecutor, snapshot *models.Snapshot) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Snapshot, error)
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, seasonID *int) ([]*models.Snapshot, error)
	CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) (int, error)
	Delete(ctx context.Context, exec SQLExecutor, id string) error
	// ListPrunable returns snapshots exceeding the count or age bound,
	// oldest first, always excluding the newest snapshot of each
	// competition so at least one recovery point survives.
	ListPrunable(ctx context.Context, exec SQLExecutor, maxCount int, maxAge time.Duration) ([]*models.Snapshot, error)
}

type postgresSnapshotRepository struct {
	db *sql.DB
}

func NewPostgresSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &postgresSnapshotRepository{db: db}
}

func (r *postgresSnapshotRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresSnapshotRepository) Create(ctx context.Context, exec SQLExecutor, snapshot *models.Snapshot) error {
	executor := r.getExecutor(exec)
	blob, err := json.Marshal(snapshot.Entries)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot entries: %w", err)
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO snapshots (id, competition_id, season_id, reason, created_at, entries)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = executor.ExecContext(ctx, query,
		snapshot.ID, snapshot.CompetitionID, snapshot.SeasonID,
		snapshot.Reason, snapshot.CreatedAt, blob,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot %s: %w", snapshot.ID, err)
	}
	return nil
}

func (r *postgresSnapshotRepository) scanSnapshot(rowScanner interface{ Scan(...interface{}) error }) (*models.Snapshot, error) {
	var s models.Snapshot
	var blob []byte
	err := rowScanner.Scan(&s.ID, &s.CompetitionID, &s.SeasonID, &s.Reason, &s.CreatedAt, &blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(blob, &s.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s entries: %w", s.ID, err)
	}
	return &s, nil
}

func (r *postgresSnapshotRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Snapshot, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, competition_id, season_id, reason, created_at, entries
		FROM snapshots WHERE id = $1`
	row := executor.QueryRowContext(ctx, query, id)
	return r.scanSnapshot(row)
}

func (r *postgresSnapshotRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int, seasonID *int) ([]*models.Snapshot, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, competition_id, season_id, reason, created_at, entries
		FROM snapshots
		WHERE competition_id = $1 AND ($2::int IS NULL OR season_id = $2)
		ORDER BY created_at DESC`
	rows, err := executor.QueryContext(ctx, query, competitionID, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]*models.Snapshot, 0)
	for rows.Next() {
		s, errScan := r.scanSnapshot(rows)
		if errScan != nil {
			return nil, errScan
		}
		snapshots = append(snapshots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *postgresSnapshotRepository) CountByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM snapshots WHERE competition_id = $1`, competitionID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresSnapshotRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM snapshots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSnapshotNotFound)
}

func (r *postgresSnapshotRepository) ListPrunable(ctx context.Context, exec SQLExecutor, maxCount int, maxAge time.Duration) ([]*models.Snapshot, error) {
	executor := r.getExecutor(exec)
	// rn = 1 is the newest snapshot per competition and is never prunable.
	query := `
		WITH ranked AS (
			SELECT id, competition_id, season_id, reason, created_at, entries,
			       ROW_NUMBER() OVER (PARTITION BY competition_id ORDER BY created_at DESC) AS rn
			FROM snapshots
		)
		SELECT id, competition_id, season_id, reason, created_at, entries
		FROM ranked
		WHERE rn > 1 AND (rn > $1 OR created_at < $2)
		ORDER BY created_at ASC`
	cutoff := time.Now().Add(-maxAge)
	rows, err := executor.QueryContext(ctx, query, maxCount, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]*models.Snapshot, 0)
	for rows.Next() {
		s, errScan := r.scanSnapshot(rows)
		if errScan != nil {
			return nil, errScan
		}
		snapshots = append(snapshots, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return snapshots, nil
}
