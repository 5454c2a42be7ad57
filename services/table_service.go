package services

import (
	"context"
	"fmt"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/repositories"
)

// TableService is the read side of the standings table.
type TableService interface {
	GetByCompetition(ctx context.Context, competitionID int) ([]*models.TableEntry, error)
}

type tableService struct {
	tableRepo repositories.TableRepository
}

func NewTableService(tableRepo repositories.TableRepository) TableService {
	return &tableService{tableRepo: tableRepo}
}

func (s *tableService) GetByCompetition(ctx context.Context, competitionID int) ([]*models.TableEntry, error) {
	if competitionID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrCompetitionNotFound, competitionID)
	}
	return s.tableRepo.ListByCompetition(ctx, nil, competitionID)
}
