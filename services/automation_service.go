package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/queue"
)

type HealthState string

const (
	HealthHealthy   HealthState = "healthy"
	HealthDegraded  HealthState = "degraded"
	HealthUnhealthy HealthState = "unhealthy"
)

// Health is the aggregate engine condition for the admin surface.
type Health struct {
	State        HealthState `json:"state"`
	QueueDepth   int         `json:"queue_depth"`
	InFlight     int         `json:"in_flight"`
	Paused       bool        `json:"paused"`
	ActiveAlerts int         `json:"active_alerts"`
	FailureRate  float64     `json:"failure_rate"`
	Samples      int         `json:"samples"`
}

// QueueControl is the queue surface the admin operations drive.
type QueueControl interface {
	Enqueue(competitionID, priority int) (*models.Job, bool, error)
	Pause()
	Resume()
	IsPaused() bool
	Status() queue.Status
	History(competitionID int) []*models.Job
}

// AlertSource feeds alert state into the health derivation.
type AlertSource interface {
	ActiveCount() int
	FailureRate() (float64, int)
}

// SettingsStore is the runtime-mutable settings holder.
type SettingsStore interface {
	Current() models.AutomationSettings
	Update(next models.AutomationSettings) error
}

// AutomationService is the operator-facing control plane: manual
// triggers, pause/resume, queue introspection, health, and settings.
type AutomationService interface {
	TriggerRecalculation(ctx context.Context, competitionID int, actor string) (*models.Job, bool, error)
	Pause(actor string)
	Resume(actor string)
	QueueStatus() queue.Status
	History(competitionID int) ([]*models.Job, error)
	Health() Health
	GetSettings() models.AutomationSettings
	UpdateSettings(next models.AutomationSettings, actor string) error
}

type automationService struct {
	queue    QueueControl
	alerts   AlertSource
	settings SettingsStore
	logger   *slog.Logger
}

func NewAutomationService(
	q QueueControl,
	alerts AlertSource,
	settings SettingsStore,
	logger *slog.Logger,
) AutomationService {
	return &automationService{
		queue:    q,
		alerts:   alerts,
		settings: settings,
		logger:   logger,
	}
}

// TriggerRecalculation enqueues a manual job ahead of debounced ones. If
// a job for the competition already exists, that job is returned and
// created is false.
func (s *automationService) TriggerRecalculation(ctx context.Context, competitionID int, actor string) (*models.Job, bool, error) {
	job, created, err := s.queue.Enqueue(competitionID, 1)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidCompetition) {
			return nil, false, fmt.Errorf("%w: %d", ErrCompetitionNotFound, competitionID)
		}
		return nil, false, err
	}

	s.logger.Info("manual recalculation requested",
		slog.Int("competition_id", competitionID),
		slog.String("job_id", job.ID),
		slog.Bool("created", created),
		slog.String("actor", actor),
	)
	return job, created, nil
}

func (s *automationService) Pause(actor string) {
	s.queue.Pause()
	s.logger.Info("automation paused", slog.String("actor", actor))
}

func (s *automationService) Resume(actor string) {
	s.queue.Resume()
	s.logger.Info("automation resumed", slog.String("actor", actor))
}

func (s *automationService) QueueStatus() queue.Status {
	return s.queue.Status()
}

func (s *automationService) History(competitionID int) ([]*models.Job, error) {
	if competitionID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrCompetitionNotFound, competitionID)
	}
	return s.queue.History(competitionID), nil
}

// Health derives the aggregate state: unhealthy when the recent failure
// rate crosses one half with enough samples, degraded when paused or any
// alert is open, healthy otherwise.
func (s *automationService) Health() Health {
	status := s.queue.Status()
	active := s.alerts.ActiveCount()
	rate, samples := s.alerts.FailureRate()

	state := HealthHealthy
	switch {
	case samples >= 4 && rate >= 0.5:
		state = HealthUnhealthy
	case status.Paused || active > 0:
		state = HealthDegraded
	}

	return Health{
		State:        state,
		QueueDepth:   status.Depth,
		InFlight:     status.InFlight,
		Paused:       status.Paused,
		ActiveAlerts: active,
		FailureRate:  rate,
		Samples:      samples,
	}
}

func (s *automationService) GetSettings() models.AutomationSettings {
	return s.settings.Current()
}

// UpdateSettings applies a full replacement settings value. Validation
// failures leave the previous settings untouched.
func (s *automationService) UpdateSettings(next models.AutomationSettings, actor string) error {
	if err := s.settings.Update(next); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	s.logger.Info("automation settings updated",
		slog.String("actor", actor),
		slog.Int("worker_count", next.WorkerCount),
		slog.Duration("job_timeout", next.JobTimeout),
		slog.Int("max_attempts", next.MaxAttempts),
		slog.Duration("debounce_window", next.DebounceWindow),
	)
	return nil
}
