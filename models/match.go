package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Valid reports whether the status is one of the closed set. Every layer
// (trigger, queue, admin surface) validates against this single definition.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusScheduled, MatchStatusLive, MatchStatusCompleted, MatchStatusCancelled:
		return true
	}
	return false
}

// Match is a result record as entered by operators. The engine only ever
// reads matches; it never writes them.
type Match struct {
	ID            int         `json:"id" db:"id"`
	CompetitionID int         `json:"competition_id" db:"competition_id"`
	SeasonID      int         `json:"season_id" db:"season_id"`
	HomeTeamID    int         `json:"home_team_id" db:"home_team_id"`
	AwayTeamID    int         `json:"away_team_id" db:"away_team_id"`
	HomeGoals     *int        `json:"home_goals,omitempty" db:"home_goals"`
	AwayGoals     *int        `json:"away_goals,omitempty" db:"away_goals"`
	Status        MatchStatus `json:"status" db:"status"`
	Date          time.Time   `json:"date" db:"date"`

	// Identity fields resolved by the repository join. Club ids are only
	// present for rows already migrated to the club identity.
	HomeTeamName string `json:"home_team_name,omitempty" db:"-"`
	AwayTeamName string `json:"away_team_name,omitempty" db:"-"`
	HomeClubID   *int   `json:"home_club_id,omitempty" db:"home_club_id"`
	AwayClubID   *int   `json:"away_club_id,omitempty" db:"away_club_id"`
}

// CountsForTable reports whether the match contributes to standings:
// completed with both goal counts present.
func (m *Match) CountsForTable() bool {
	return m.Status == MatchStatusCompleted && m.HomeGoals != nil && m.AwayGoals != nil
}
