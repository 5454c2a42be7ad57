package models

import "time"

type FormResult string

const (
	FormWin  FormResult = "W"
	FormDraw FormResult = "D"
	FormLoss FormResult = "L"
)

// MaxFormLength bounds the recent-result sequence kept per entry.
const MaxFormLength = 5

// TableEntry is one team's computed standings row within a competition.
// Entries are owned by the calculation engine; the only other writer is the
// snapshot restore path, which replaces whole competitions at once.
type TableEntry struct {
	ID             int          `json:"id" db:"id"`
	CompetitionID  int          `json:"competition_id" db:"competition_id"`
	SeasonID       int          `json:"season_id" db:"season_id"`
	TeamID         int          `json:"team_id" db:"team_id"`
	ClubID         *int         `json:"club_id,omitempty" db:"club_id"`
	TeamName       string       `json:"team_name" db:"team_name"`
	Position       int          `json:"position" db:"position"`
	Played         int          `json:"played" db:"played"`
	Wins           int          `json:"wins" db:"wins"`
	Draws          int          `json:"draws" db:"draws"`
	Losses         int          `json:"losses" db:"losses"`
	GoalsFor       int          `json:"goals_for" db:"goals_for"`
	GoalsAgainst   int          `json:"goals_against" db:"goals_against"`
	GoalDifference int          `json:"goal_difference" db:"goal_difference"`
	Points         int          `json:"points" db:"points"`
	Form           []FormResult `json:"form" db:"-"`
	UpdatedAt      time.Time    `json:"updated_at" db:"updated_at"`
}

// IdentityID returns the identity the row should be grouped and displayed
// under. During the team-to-club migration some rows carry both references;
// when preferClub is set the club id wins, otherwise (and whenever the club
// reference is absent) the legacy team id is used.
func (e *TableEntry) IdentityID(preferClub bool) int {
	if preferClub && e.ClubID != nil {
		return *e.ClubID
	}
	return e.TeamID
}

// Clone returns a deep copy, used by snapshots and the queue history so
// later recalculations cannot mutate captured state.
func (e *TableEntry) Clone() *TableEntry {
	c := *e
	if e.ClubID != nil {
		v := *e.ClubID
		c.ClubID = &v
	}
	if e.Form != nil {
		c.Form = make([]FormResult, len(e.Form))
		copy(c.Form, e.Form)
	}
	return &c
}

// CloneEntries deep-copies a whole entry set.
func CloneEntries(entries []*TableEntry) []*TableEntry {
	if entries == nil {
		return nil
	}
	out := make([]*TableEntry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
