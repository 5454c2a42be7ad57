package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/queue"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/services"
)

type fakeAutomationService struct {
	settings  models.AutomationSettings
	existing  bool
	triggered []int
}

func (s *fakeAutomationService) TriggerRecalculation(ctx context.Context, competitionID int, actor string) (*models.Job, bool, error) {
	if competitionID > 1000 {
		return nil, false, fmt.Errorf("%w: %d", services.ErrCompetitionNotFound, competitionID)
	}
	s.triggered = append(s.triggered, competitionID)
	return &models.Job{ID: "job-1", CompetitionID: competitionID, Priority: 1}, !s.existing, nil
}

func (s *fakeAutomationService) Pause(actor string)  {}
func (s *fakeAutomationService) Resume(actor string) {}

func (s *fakeAutomationService) QueueStatus() queue.Status {
	return queue.Status{Depth: 2, InFlightJobs: []*models.Job{}}
}

func (s *fakeAutomationService) History(competitionID int) ([]*models.Job, error) {
	return []*models.Job{}, nil
}

func (s *fakeAutomationService) Health() services.Health {
	return services.Health{State: services.HealthHealthy}
}

func (s *fakeAutomationService) GetSettings() models.AutomationSettings {
	return s.settings
}

func (s *fakeAutomationService) UpdateSettings(next models.AutomationSettings, actor string) error {
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", services.ErrValidationFailed, err)
	}
	s.settings = next
	return nil
}

func newTestRouter(svc *fakeAutomationService) *chi.Mux {
	h := NewAutomationHandler(svc)
	router := chi.NewRouter()
	router.Post("/competitions/{competitionID}/recalculate", h.TriggerRecalculation)
	router.Get("/queue-status", h.QueueStatus)
	router.Get("/settings", h.GetSettings)
	router.Put("/settings", h.UpdateSettings)
	router.Get("/health", h.Health)
	return router
}

func TestTriggerRecalculationAccepted(t *testing.T) {
	svc := &fakeAutomationService{settings: models.DefaultAutomationSettings()}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/competitions/7/recalculate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Job     models.Job `json:"job"`
		Created bool       `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Created)
	assert.Equal(t, 7, body.Job.CompetitionID)
	assert.Equal(t, []int{7}, svc.triggered)
}

func TestTriggerRecalculationMergesIntoExistingJob(t *testing.T) {
	svc := &fakeAutomationService{settings: models.DefaultAutomationSettings(), existing: true}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/competitions/7/recalculate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var body struct {
		Created bool `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Created)
}

func TestTriggerRecalculationRejectsBadID(t *testing.T) {
	svc := &fakeAutomationService{settings: models.DefaultAutomationSettings()}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/competitions/abc/recalculate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.triggered)
}

func TestTriggerRecalculationUnknownCompetition(t *testing.T) {
	svc := &fakeAutomationService{settings: models.DefaultAutomationSettings()}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/competitions/99999/recalculate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateSettingsRejectsInvalidValues(t *testing.T) {
	svc := &fakeAutomationService{settings: models.DefaultAutomationSettings()}
	router := newTestRouter(svc)

	bad := models.DefaultAutomationSettings()
	bad.WorkerCount = 0
	payload, err := json.Marshal(bad)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, models.DefaultAutomationSettings(), svc.settings)
}

func TestUpdateSettingsAppliesValidValues(t *testing.T) {
	svc := &fakeAutomationService{settings: models.DefaultAutomationSettings()}
	router := newTestRouter(svc)

	next := models.DefaultAutomationSettings()
	next.WorkerCount = 4
	payload, err := json.Marshal(next)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, svc.settings.WorkerCount)
}

func TestHealthEndpoint(t *testing.T) {
	svc := &fakeAutomationService{settings: models.DefaultAutomationSettings()}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health services.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, services.HealthHealthy, health.State)
}
