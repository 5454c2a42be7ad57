package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/repositories"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/storage"
)

// SnapshotRecorder receives snapshot lifecycle counts for monitoring.
type SnapshotRecorder interface {
	SnapshotCreated(reason models.SnapshotReason)
	SnapshotsPruned(count int)
}

type nopSnapshotRecorder struct{}

func (nopSnapshotRecorder) SnapshotCreated(models.SnapshotReason) {}
func (nopSnapshotRecorder) SnapshotsPruned(int) {}

// SnapshotService captures, restores, and prunes table snapshots. The
// pre-recalculation capture doubles as the queue's safety net; restore is
// the operator-facing rollback.
type SnapshotService interface {
	Create(ctx context.Context, competitionID int, reason models.SnapshotReason) (*models.Snapshot, error)
	CapturePreRecalculation(ctx context.Context, competitionID int) error
	List(ctx context.Context, competitionID int, seasonID *int) ([]*models.Snapshot, int, error)
	Restore(ctx context.Context, snapshotID string) (*models.Snapshot, error)
	Delete(ctx context.Context, snapshotID string) error
	Prune(ctx context.Context) (int, error)
}

type snapshotService struct {
	snapshotRepo repositories.SnapshotRepository
	tableRepo    repositories.TableRepository
	archiver     storage.SnapshotArchiver
	settings     SettingsSource
	recorder     SnapshotRecorder
	logger       *slog.Logger
}

func NewSnapshotService(
	snapshotRepo repositories.SnapshotRepository,
	tableRepo repositories.TableRepository,
	archiver storage.SnapshotArchiver,
	settings SettingsSource,
	recorder SnapshotRecorder,
	logger *slog.Logger,
) SnapshotService {
	if archiver == nil {
		archiver = storage.NopArchiver{}
	}
	if recorder == nil {
		recorder = nopSnapshotRecorder{}
	}
	return &snapshotService{
		snapshotRepo: snapshotRepo,
		tableRepo:    tableRepo,
		archiver:     archiver,
		settings:     settings,
		recorder:     recorder,
		logger:       logger,
	}
}

// Create captures the competition's current table as it stands. An empty
// table snapshots as an empty entry set; restoring it later clears the
// table.
func (s *snapshotService) Create(ctx context.Context, competitionID int, reason models.SnapshotReason) (*models.Snapshot, error) {
	if competitionID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrCompetitionNotFound, competitionID)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("%w: unknown snapshot reason %q", ErrValidationFailed, reason)
	}

	entries, err := s.tableRepo.ListByCompetition(ctx, nil, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load table for competition %d: %w", competitionID, err)
	}

	snapshot := &models.Snapshot{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		SeasonID:      entriesSeasonID(entries),
		Reason:        reason,
		CreatedAt:     time.Now(),
		Entries:       models.CloneEntries(entries),
	}

	if err := s.snapshotRepo.Create(ctx, nil, snapshot); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.recorder.SnapshotCreated(reason)
	s.logger.Info("snapshot created",
		slog.String("snapshot_id", snapshot.ID),
		slog.Int("competition_id", competitionID),
		slog.String("reason", string(reason)),
		slog.Int("entries", len(snapshot.Entries)),
	)
	return snapshot, nil
}

func (s *snapshotService) CapturePreRecalculation(ctx context.Context, competitionID int) error {
	_, err := s.Create(ctx, competitionID, models.SnapshotReasonPreRecalc)
	return err
}

// List returns the matching snapshots plus the competition's total
// snapshot count across all seasons.
func (s *snapshotService) List(ctx context.Context, competitionID int, seasonID *int) ([]*models.Snapshot, int, error) {
	if competitionID <= 0 {
		return nil, 0, fmt.Errorf("%w: %d", ErrCompetitionNotFound, competitionID)
	}
	snapshots, err := s.snapshotRepo.ListByCompetition(ctx, nil, competitionID, seasonID)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.snapshotRepo.CountByCompetition(ctx, nil, competitionID)
	if err != nil {
		return nil, 0, err
	}
	return snapshots, total, nil
}

// Restore swaps the competition's live table for the snapshot's entries.
// The state being overwritten is captured first, so a restore is itself
// reversible.
func (s *snapshotService) Restore(ctx context.Context, snapshotID string) (*models.Snapshot, error) {
	snapshot, err := s.snapshotRepo.GetByID(ctx, nil, snapshotID)
	if err != nil {
		if errors.Is(err, repositories.ErrSnapshotNotFound) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load snapshot %s: %w", snapshotID, err)
	}

	if _, err := s.Create(ctx, snapshot.CompetitionID, models.SnapshotReasonPostRestore); err != nil {
		return nil, fmt.Errorf("failed to capture pre-restore state: %w", err)
	}

	if err := s.tableRepo.ReplaceByCompetition(ctx, snapshot.CompetitionID, models.CloneEntries(snapshot.Entries)); err != nil {
		return nil, fmt.Errorf("failed to restore snapshot %s: %w", snapshotID, err)
	}

	s.logger.Info("snapshot restored",
		slog.String("snapshot_id", snapshot.ID),
		slog.Int("competition_id", snapshot.CompetitionID),
		slog.Int("entries", len(snapshot.Entries)),
	)
	return snapshot, nil
}

func (s *snapshotService) Delete(ctx context.Context, snapshotID string) error {
	err := s.snapshotRepo.Delete(ctx, nil, snapshotID)
	if errors.Is(err, repositories.ErrSnapshotNotFound) {
		return ErrSnapshotNotFound
	}
	return err
}

// Prune archives and removes snapshots beyond the retention bounds. The
// newest snapshot of every competition always survives. Pruning keeps
// going past individual failures so one bad snapshot cannot wedge
// retention forever.
func (s *snapshotService) Prune(ctx context.Context) (int, error) {
	cfg := s.settings.Current()
	prunable, err := s.snapshotRepo.ListPrunable(ctx, nil, cfg.MaxSnapshots, cfg.SnapshotMaxAge)
	if err != nil {
		return 0, fmt.Errorf("failed to list prunable snapshots: %w", err)
	}

	pruned := 0
	var firstErr error
	for _, snapshot := range prunable {
		if _, err := s.archiver.Archive(ctx, snapshot); err != nil {
			s.logger.Error("snapshot archive failed, keeping snapshot",
				slog.String("snapshot_id", snapshot.ID),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := s.snapshotRepo.Delete(ctx, nil, snapshot.ID); err != nil && !errors.Is(err, repositories.ErrSnapshotNotFound) {
			s.logger.Error("snapshot delete failed",
				slog.String("snapshot_id", snapshot.ID),
				slog.Any("error", err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pruned++
	}

	if pruned > 0 {
		s.recorder.SnapshotsPruned(pruned)
		s.logger.Info("snapshots pruned", slog.Int("count", pruned))
	}
	return pruned, firstErr
}

func entriesSeasonID(entries []*models.TableEntry) int {
	if len(entries) > 0 {
		return entries[0].SeasonID
	}
	return 0
}
