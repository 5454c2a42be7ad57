package standings

import (
	"fmt"
	"sort"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

// Warning records a per-team or per-match computation fallback. Fallbacks
// never abort a run; the affected value defaults to zero and the warning is
// surfaced through monitoring.
type Warning struct {
	MatchID int    `json:"match_id,omitempty"`
	TeamID  int    `json:"team_id,omitempty"`
	Reason  string `json:"reason"`
}

// Input carries everything Calculate needs. Previous entries supply the
// team universe and identity metadata for teams that currently have no
// completed match; matches supply everything else.
type Input struct {
	CompetitionID int
	SeasonID      int
	Matches       []*models.Match
	Previous      []*models.TableEntry
	PreferClub    bool
}

// Result is a full, consistently ordered entry set plus any fallbacks hit
// along the way.
type Result struct {
	Entries  []*models.TableEntry
	Warnings []Warning
}

type teamAccumulator struct {
	entry   *models.TableEntry
	results []models.FormResult // all completed results, oldest first
}

// Calculate derives a competition's complete table from its completed
// matches. It is pure and deterministic: the same input always produces an
// identical entry set, including positions and form.
//
// Ordering: points desc, goal difference desc, goals for desc, team name
// asc. The name tie-break guarantees a strict order, so positions are dense
// with no duplicates.
func Calculate(in Input) (*Result, error) {
	if in.CompetitionID <= 0 {
		return nil, fmt.Errorf("standings: invalid competition id %d", in.CompetitionID)
	}

	res := &Result{}
	acc := make(map[int]*teamAccumulator)

	seed := func(teamID int, clubID *int, name string) *teamAccumulator {
		identity := teamID
		if in.PreferClub && clubID != nil {
			identity = *clubID
		}
		a, ok := acc[identity]
		if !ok {
			a = &teamAccumulator{entry: &models.TableEntry{
				CompetitionID: in.CompetitionID,
				SeasonID:      in.SeasonID,
				TeamID:        teamID,
				ClubID:        cloneIntPtr(clubID),
				TeamName:      name,
			}}
			acc[identity] = a
		}
		// Prefer the richer reference: a row seeded from a legacy
		// team-only record picks up the club id once any source
		// carries it.
		if a.entry.ClubID == nil && clubID != nil {
			a.entry.ClubID = cloneIntPtr(clubID)
		}
		if a.entry.TeamName == "" && name != "" {
			a.entry.TeamName = name
		}
		return a
	}

	// Teams with a current entry stay in the table even when they have no
	// completed match yet (zeroed row), so a table never loses rows
	// because results were reverted.
	for _, prev := range in.Previous {
		if prev == nil {
			continue
		}
		seed(prev.TeamID, prev.ClubID, prev.TeamName)
	}

	for _, m := range in.Matches {
		if m == nil {
			continue
		}
		if m.Status != models.MatchStatusCompleted {
			continue
		}
		if m.HomeGoals == nil || m.AwayGoals == nil {
			res.Warnings = append(res.Warnings, Warning{
				MatchID: m.ID,
				Reason:  "completed match missing goal counts, skipped",
			})
			continue
		}
		hg, ag := *m.HomeGoals, *m.AwayGoals
		if hg < 0 || ag < 0 {
			res.Warnings = append(res.Warnings, Warning{
				MatchID: m.ID,
				Reason:  fmt.Sprintf("negative goal count (%d:%d), skipped", hg, ag),
			})
			continue
		}

		home := seed(m.HomeTeamID, m.HomeClubID, m.HomeTeamName)
		away := seed(m.AwayTeamID, m.AwayClubID, m.AwayTeamName)
		if home == away {
			res.Warnings = append(res.Warnings, Warning{
				MatchID: m.ID,
				TeamID:  m.HomeTeamID,
				Reason:  "home and away resolve to the same identity, skipped",
			})
			continue
		}

		applyResult(home, hg, ag)
		applyResult(away, ag, hg)
	}

	entries := make([]*models.TableEntry, 0, len(acc))
	for _, a := range acc {
		e := a.entry
		e.GoalDifference = e.GoalsFor - e.GoalsAgainst
		e.Points = 3*e.Wins + e.Draws
		e.Form = lastResults(a.results, models.MaxFormLength)
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GoalDifference != b.GoalDifference {
			return a.GoalDifference > b.GoalDifference
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		if a.TeamName != b.TeamName {
			return a.TeamName < b.TeamName
		}
		// Names can collide on unnamed legacy rows; team id keeps the
		// order strict.
		return a.TeamID < b.TeamID
	})

	for i, e := range entries {
		e.Position = i + 1
	}

	res.Entries = entries
	return res, nil
}

// applyResult folds one match result into a team's counters from that
// team's perspective. Matches arrive date ascending, so appending keeps the
// form sequence oldest first.
func applyResult(a *teamAccumulator, goalsFor, goalsAgainst int) {
	e := a.entry
	e.Played++
	e.GoalsFor += goalsFor
	e.GoalsAgainst += goalsAgainst
	switch {
	case goalsFor > goalsAgainst:
		e.Wins++
		a.results = append(a.results, models.FormWin)
	case goalsFor == goalsAgainst:
		e.Draws++
		a.results = append(a.results, models.FormDraw)
	default:
		e.Losses++
		a.results = append(a.results, models.FormLoss)
	}
}

// lastResults keeps the most recent n results, oldest first.
func lastResults(results []models.FormResult, n int) []models.FormResult {
	if len(results) > n {
		results = results[len(results)-n:]
	}
	out := make([]models.FormResult, len(results))
	copy(out, results)
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
