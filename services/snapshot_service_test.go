package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/repositories"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/storage"
)

type memSnapshotRepo struct {
	snapshots map[string]*models.Snapshot
	createErr error
}

func newMemSnapshotRepo() *memSnapshotRepo {
	return &memSnapshotRepo{snapshots: make(map[string]*models.Snapshot)}
}

func (r *memSnapshotRepo) Create(ctx context.Context, exec repositories.SQLExecutor, snapshot *models.Snapshot) error {
	if r.createErr != nil {
		return r.createErr
	}
	c := *snapshot
	c.Entries = models.CloneEntries(snapshot.Entries)
	r.snapshots[snapshot.ID] = &c
	return nil
}

func (r *memSnapshotRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id string) (*models.Snapshot, error) {
	s, ok := r.snapshots[id]
	if !ok {
		return nil, repositories.ErrSnapshotNotFound
	}
	c := *s
	c.Entries = models.CloneEntries(s.Entries)
	return &c, nil
}

func (r *memSnapshotRepo) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int, seasonID *int) ([]*models.Snapshot, error) {
	out := make([]*models.Snapshot, 0)
	for _, s := range r.snapshots {
		if s.CompetitionID != competitionID {
			continue
		}
		if seasonID != nil && s.SeasonID != *seasonID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memSnapshotRepo) CountByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int) (int, error) {
	count := 0
	for _, s := range r.snapshots {
		if s.CompetitionID == competitionID {
			count++
		}
	}
	return count, nil
}

func (r *memSnapshotRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id string) error {
	if _, ok := r.snapshots[id]; !ok {
		return repositories.ErrSnapshotNotFound
	}
	delete(r.snapshots, id)
	return nil
}

func (r *memSnapshotRepo) ListPrunable(ctx context.Context, exec repositories.SQLExecutor, maxCount int, maxAge time.Duration) ([]*models.Snapshot, error) {
	// The SQL implementation carries the retention logic; the fake hands
	// back whatever the test staged via prunable ids.
	out := make([]*models.Snapshot, 0)
	for _, s := range r.snapshots {
		if s.Reason == models.SnapshotReasonScheduled {
			out = append(out, s)
		}
	}
	return out, nil
}

type memTableRepo struct {
	entries    map[int][]*models.TableEntry
	replaceErr error
	replaced   map[int][]*models.TableEntry
}

func newMemTableRepo() *memTableRepo {
	return &memTableRepo{
		entries:  make(map[int][]*models.TableEntry),
		replaced: make(map[int][]*models.TableEntry),
	}
}

func (r *memTableRepo) ListByCompetition(ctx context.Context, exec repositories.SQLExecutor, competitionID int) ([]*models.TableEntry, error) {
	return models.CloneEntries(r.entries[competitionID]), nil
}

func (r *memTableRepo) GetByCompetitionAndTeam(ctx context.Context, exec repositories.SQLExecutor, competitionID, teamID int) (*models.TableEntry, error) {
	for _, e := range r.entries[competitionID] {
		if e.TeamID == teamID {
			return e.Clone(), nil
		}
	}
	return nil, repositories.ErrTableEntryNotFound
}

func (r *memTableRepo) ReplaceByCompetition(ctx context.Context, competitionID int, entries []*models.TableEntry) error {
	if r.replaceErr != nil {
		return r.replaceErr
	}
	r.entries[competitionID] = models.CloneEntries(entries)
	r.replaced[competitionID] = models.CloneEntries(entries)
	return nil
}

type failingArchiver struct {
	storage.NopArchiver
	failFor map[string]bool
}

func (a *failingArchiver) Archive(ctx context.Context, snapshot *models.Snapshot) (*storage.ArchiveResult, error) {
	if a.failFor[snapshot.ID] {
		return nil, errors.New("bucket unavailable")
	}
	return &storage.ArchiveResult{Key: "snapshots/" + snapshot.ID}, nil
}

type staticSettings struct {
	s models.AutomationSettings
}

func (s staticSettings) Current() models.AutomationSettings { return s.s }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func entry(competitionID, teamID, points, position int) *models.TableEntry {
	return &models.TableEntry{
		CompetitionID: competitionID,
		SeasonID:      2025,
		TeamID:        teamID,
		TeamName:      "Team",
		Points:        points,
		Position:      position,
	}
}

func newSnapshotService(snapRepo *memSnapshotRepo, tableRepo *memTableRepo, archiver storage.SnapshotArchiver) SnapshotService {
	return NewSnapshotService(
		snapRepo, tableRepo, archiver,
		staticSettings{s: models.DefaultAutomationSettings()},
		nil, testLogger(),
	)
}

func TestSnapshotCreateCapturesCurrentTable(t *testing.T) {
	snapRepo := newMemSnapshotRepo()
	tableRepo := newMemTableRepo()
	tableRepo.entries[1] = []*models.TableEntry{entry(1, 10, 9, 1), entry(1, 20, 6, 2)}
	svc := newSnapshotService(snapRepo, tableRepo, nil)

	snapshot, err := svc.Create(context.Background(), 1, models.SnapshotReasonManual)
	require.NoError(t, err)
	assert.NotEmpty(t, snapshot.ID)
	assert.Equal(t, 2025, snapshot.SeasonID)
	require.Len(t, snapshot.Entries, 2)

	// A later table change must not leak into the stored snapshot.
	tableRepo.entries[1][0].Points = 0
	stored, err := snapRepo.GetByID(context.Background(), nil, snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, stored.Entries[0].Points)
}

func TestSnapshotCreateRejectsBadInput(t *testing.T) {
	svc := newSnapshotService(newMemSnapshotRepo(), newMemTableRepo(), nil)

	_, err := svc.Create(context.Background(), 0, models.SnapshotReasonManual)
	assert.ErrorIs(t, err, ErrCompetitionNotFound)

	_, err = svc.Create(context.Background(), 1, models.SnapshotReason("bogus"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestSnapshotOfEmptyTable(t *testing.T) {
	svc := newSnapshotService(newMemSnapshotRepo(), newMemTableRepo(), nil)

	snapshot, err := svc.Create(context.Background(), 1, models.SnapshotReasonManual)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Entries)
}

func TestRestoreSwapsTableAndCapturesPreRestoreState(t *testing.T) {
	snapRepo := newMemSnapshotRepo()
	tableRepo := newMemTableRepo()
	tableRepo.entries[1] = []*models.TableEntry{entry(1, 10, 9, 1)}
	svc := newSnapshotService(snapRepo, tableRepo, nil)

	snapshot, err := svc.Create(context.Background(), 1, models.SnapshotReasonManual)
	require.NoError(t, err)

	// Table moves on after the capture.
	tableRepo.entries[1] = []*models.TableEntry{entry(1, 10, 12, 1), entry(1, 20, 3, 2)}

	restored, err := svc.Restore(context.Background(), snapshot.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot.ID, restored.ID)

	current, err := tableRepo.ListByCompetition(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, 9, current[0].Points)

	// The overwritten state was itself snapshotted for undo.
	var postRestore *models.Snapshot
	for _, s := range snapRepo.snapshots {
		if s.Reason == models.SnapshotReasonPostRestore {
			postRestore = s
		}
	}
	require.NotNil(t, postRestore)
	assert.Len(t, postRestore.Entries, 2)
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	svc := newSnapshotService(newMemSnapshotRepo(), newMemTableRepo(), nil)

	_, err := svc.Restore(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func TestRestoreLeavesTableWhenReplaceFails(t *testing.T) {
	snapRepo := newMemSnapshotRepo()
	tableRepo := newMemTableRepo()
	tableRepo.entries[1] = []*models.TableEntry{entry(1, 10, 9, 1)}
	svc := newSnapshotService(snapRepo, tableRepo, nil)

	snapshot, err := svc.Create(context.Background(), 1, models.SnapshotReasonManual)
	require.NoError(t, err)

	tableRepo.replaceErr = errors.New("db down")
	_, err = svc.Restore(context.Background(), snapshot.ID)
	require.Error(t, err)

	current, err := tableRepo.ListByCompetition(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, 9, current[0].Points)
}

func TestPruneArchivesThenDeletes(t *testing.T) {
	snapRepo := newMemSnapshotRepo()
	tableRepo := newMemTableRepo()
	archiver := &failingArchiver{failFor: map[string]bool{}}
	svc := newSnapshotService(snapRepo, tableRepo, archiver)

	old := &models.Snapshot{ID: "old-1", CompetitionID: 1, Reason: models.SnapshotReasonScheduled, CreatedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, snapRepo.Create(context.Background(), nil, old))

	pruned, err := svc.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	_, err = snapRepo.GetByID(context.Background(), nil, "old-1")
	assert.ErrorIs(t, err, repositories.ErrSnapshotNotFound)
}

func TestPruneKeepsSnapshotWhenArchiveFails(t *testing.T) {
	snapRepo := newMemSnapshotRepo()
	archiver := &failingArchiver{failFor: map[string]bool{"old-1": true}}
	svc := newSnapshotService(snapRepo, newMemTableRepo(), archiver)

	old := &models.Snapshot{ID: "old-1", CompetitionID: 1, Reason: models.SnapshotReasonScheduled, CreatedAt: time.Now().Add(-48 * time.Hour)}
	keep := &models.Snapshot{ID: "old-2", CompetitionID: 2, Reason: models.SnapshotReasonScheduled, CreatedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, snapRepo.Create(context.Background(), nil, old))
	require.NoError(t, snapRepo.Create(context.Background(), nil, keep))

	pruned, err := svc.Prune(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, pruned)

	// The unarchivable snapshot survives in the database.
	_, err = snapRepo.GetByID(context.Background(), nil, "old-1")
	assert.NoError(t, err)
}

func TestDeleteSnapshot(t *testing.T) {
	snapRepo := newMemSnapshotRepo()
	svc := newSnapshotService(snapRepo, newMemTableRepo(), nil)

	s := &models.Snapshot{ID: "s-1", CompetitionID: 1, Reason: models.SnapshotReasonManual, CreatedAt: time.Now()}
	require.NoError(t, snapRepo.Create(context.Background(), nil, s))

	require.NoError(t, svc.Delete(context.Background(), "s-1"))
	assert.ErrorIs(t, svc.Delete(context.Background(), "s-1"), ErrSnapshotNotFound)
}
