package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

var ErrTableEntryNotFound = errors.New("table entry not found")

// TableRepository persists computed standings rows. The only write path is
// ReplaceByCompetition, which swaps a competition's whole entry set inside
// one transaction so readers see either the old or the new table, never a
// mix.
type TableRepository interface {
	ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.TableEntry, error)
	GetByCompetitionAndTeam(ctx context.Context, exec SQLExecutor, competitionID, teamID int) (*models.TableEntry, error)
	ReplaceByCompetition(ctx context.Context, competitionID int, entries []*models.TableEntry) error
}

type postgresTableRepository struct {
	db *sql.DB
}

func NewPostgresTableRepository(db *sql.DB) TableRepository {
	return &postgresTableRepository{db: db}
}

func (r *postgresTableRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// encodeForm packs the recent-result sequence into a compact string column,
// oldest first, e.g. "WDLWW".
func encodeForm(form []models.FormResult) string {
	s := ""
	for _, f := range form {
		s += string(f)
	}
	return s
}

func decodeForm(s string) []models.FormResult {
	form := make([]models.FormResult, 0, len(s))
	for _, c := range s {
		switch models.FormResult(c) {
		case models.FormWin, models.FormDraw, models.FormLoss:
			form = append(form, models.FormResult(c))
		}
	}
	return form
}

func (r *postgresTableRepository) scanEntry(rowScanner interface{ Scan(...interface{}) error }) (*models.TableEntry, error) {
	var e models.TableEntry
	var form string
	err := rowScanner.Scan(
		&e.ID, &e.CompetitionID, &e.SeasonID, &e.TeamID, &e.ClubID, &e.TeamName,
		&e.Position, &e.Played, &e.Wins, &e.Draws, &e.Losses,
		&e.GoalsFor, &e.GoalsAgainst, &e.GoalDifference, &e.Points,
		&form, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableEntryNotFound
		}
		return nil, err
	}
	e.Form = decodeForm(form)
	return &e, nil
}

const tableEntryColumns = `
	id, competition_id, season_id, team_id, club_id, team_name,
	position, played, wins, draws, losses,
	goals_for, goals_against, goal_difference, points, form, updated_at`

func (r *postgresTableRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.TableEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + tableEntryColumns + `
		FROM table_entries
		WHERE competition_id = $1
		ORDER BY position ASC`
	rows, err := executor.QueryContext(ctx, query, competitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.TableEntry, 0)
	for rows.Next() {
		e, errScan := r.scanEntry(rows)
		if errScan != nil {
			return nil, errScan
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *postgresTableRepository) GetByCompetitionAndTeam(ctx context.Context, exec SQLExecutor, competitionID, teamID int) (*models.TableEntry, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + tableEntryColumns + `
		FROM table_entries
		WHERE competition_id = $1 AND team_id = $2`
	row := executor.QueryRowContext(ctx, query, competitionID, teamID)
	return r.scanEntry(row)
}

// ReplaceByCompetition deletes and reinserts the competition's rows in one
// transaction. On any failure the transaction rolls back and the previous
// table remains authoritative.
func (r *postgresTableRepository) ReplaceByCompetition(ctx context.Context, competitionID int, entries []*models.TableEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ReplaceByCompetition failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM table_entries WHERE competition_id = $1`, competitionID); err != nil {
		tx.Rollback()
		return fmt.Errorf("ReplaceByCompetition failed to clear competition %d: %w", competitionID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO table_entries
		    (competition_id, season_id, team_id, club_id, team_name,
		     position, played, wins, draws, losses,
		     goals_for, goals_against, goal_difference, points, form, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("ReplaceByCompetition failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range entries {
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
		_, err = stmt.ExecContext(ctx,
			e.CompetitionID, e.SeasonID, e.TeamID, e.ClubID, e.TeamName,
			e.Position, e.Played, e.Wins, e.Draws, e.Losses,
			e.GoalsFor, e.GoalsAgainst, e.GoalDifference, e.Points,
			encodeForm(e.Form), e.UpdatedAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("ReplaceByCompetition failed for team %d: %w", e.TeamID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ReplaceByCompetition failed to commit: %w", err)
	}
	return nil
}
