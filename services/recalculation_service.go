package services

import (
	"context"
	"fmt"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/repositories"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/standings"
)

// SettingsSource supplies the live automation settings.
type SettingsSource interface {
	Current() models.AutomationSettings
}

// RecalculationService assembles the calculation input from storage and
// runs the pure engine. It never persists results; the queue sequences
// snapshot, calculation, and table replace around it.
type RecalculationService interface {
	Recalculate(ctx context.Context, competitionID int) ([]*models.TableEntry, []standings.Warning, error)
}

type recalculationService struct {
	matchRepo repositories.MatchRepository
	tableRepo repositories.TableRepository
	settings  SettingsSource
}

func NewRecalculationService(
	matchRepo repositories.MatchRepository,
	tableRepo repositories.TableRepository,
	settings SettingsSource,
) RecalculationService {
	return &recalculationService{
		matchRepo: matchRepo,
		tableRepo: tableRepo,
		settings:  settings,
	}
}

func (s *recalculationService) Recalculate(ctx context.Context, competitionID int) ([]*models.TableEntry, []standings.Warning, error) {
	if competitionID <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrCompetitionNotFound, competitionID)
	}

	matches, err := s.matchRepo.ListCompletedByCompetition(ctx, nil, competitionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load completed matches for competition %d: %w", competitionID, err)
	}

	previous, err := s.tableRepo.ListByCompetition(ctx, nil, competitionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load current table for competition %d: %w", competitionID, err)
	}

	result, err := standings.Calculate(standings.Input{
		CompetitionID: competitionID,
		SeasonID:      seasonID(matches, previous),
		Matches:       matches,
		Previous:      previous,
		PreferClub:    s.settings.Current().PreferClubIdentity,
	})
	if err != nil {
		return nil, nil, err
	}

	return result.Entries, result.Warnings, nil
}

// seasonID picks the season from the freshest available source. Matches
// win over the previous table so a season rollover propagates on the
// first recalculation.
func seasonID(matches []*models.Match, previous []*models.TableEntry) int {
	if len(matches) > 0 {
		return matches[len(matches)-1].SeasonID
	}
	if len(previous) > 0 {
		return previous[0].SeasonID
	}
	return 0
}
