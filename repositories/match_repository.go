package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchRepository is the engine's read-only view of match records. Matches
// are written elsewhere; the recalculation path only ever selects them.
type MatchRepository interface {
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error)
	ListCompletedByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	m.id, m.competition_id, m.season_id, m.home_team_id, m.away_team_id,
	m.home_goals, m.away_goals, m.status, m.date,
	ht.name, at.name, ht.club_id, at.club_id`

func (r *postgresMatchRepository) scanMatch(rowScanner interface{ Scan(...interface{}) error }) (*models.Match, error) {
	var m models.Match
	err := rowScanner.Scan(
		&m.ID, &m.CompetitionID, &m.SeasonID, &m.HomeTeamID, &m.AwayTeamID,
		&m.HomeGoals, &m.AwayGoals, &m.Status, &m.Date,
		&m.HomeTeamName, &m.AwayTeamName, &m.HomeClubID, &m.AwayClubID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + matchColumns + `
		FROM matches m
		JOIN teams ht ON m.home_team_id = ht.id
		JOIN teams at ON m.away_team_id = at.id
		WHERE m.id = $1`
	row := executor.QueryRowContext(ctx, query, id)
	return r.scanMatch(row)
}

// ListCompletedByCompetition returns completed matches ordered by match
// date ascending, which is the order the form computation depends on.
func (r *postgresMatchRepository) ListCompletedByCompetition(ctx context.Context, exec SQLExecutor, competitionID int) ([]*models.Match, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT ` + matchColumns + `
		FROM matches m
		JOIN teams ht ON m.home_team_id = ht.id
		JOIN teams at ON m.away_team_id = at.id
		WHERE m.competition_id = $1 AND m.status = $2
		ORDER BY m.date ASC, m.id ASC`
	rows, err := executor.QueryContext(ctx, query, competitionID, models.MatchStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, errScan := r.scanMatch(rows)
		if errScan != nil {
			return nil, errScan
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}
