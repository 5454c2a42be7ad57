package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/config"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/queue"
)

type fakeQueueControl struct {
	status     queue.Status
	history    map[int][]*models.Job
	paused     bool
	enqueued   []int
	priorities []int
	enqueueErr error
	existing   bool
}

func (q *fakeQueueControl) Enqueue(competitionID, priority int) (*models.Job, bool, error) {
	if q.enqueueErr != nil {
		return nil, false, q.enqueueErr
	}
	q.enqueued = append(q.enqueued, competitionID)
	q.priorities = append(q.priorities, priority)
	return &models.Job{ID: "job-1", CompetitionID: competitionID, Priority: priority}, !q.existing, nil
}

func (q *fakeQueueControl) Pause()         { q.paused = true }
func (q *fakeQueueControl) Resume()        { q.paused = false }
func (q *fakeQueueControl) IsPaused() bool { return q.paused }
func (q *fakeQueueControl) Status() queue.Status {
	s := q.status
	s.Paused = q.paused
	return s
}
func (q *fakeQueueControl) History(competitionID int) []*models.Job { return q.history[competitionID] }

type fakeAlertSource struct {
	active  int
	rate    float64
	samples int
}

func (a fakeAlertSource) ActiveCount() int { return a.active }
func (a fakeAlertSource) FailureRate() (float64, int) { return a.rate, a.samples }

func newAutomationService(q *fakeQueueControl, alerts fakeAlertSource) (AutomationService, *config.SettingsStore) {
	store := config.NewSettingsStore(models.DefaultAutomationSettings())
	return NewAutomationService(q, alerts, store, testLogger()), store
}

func TestManualTriggerJumpsQueue(t *testing.T) {
	q := &fakeQueueControl{}
	svc, _ := newAutomationService(q, fakeAlertSource{})

	job, created, err := svc.TriggerRecalculation(context.Background(), 7, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 7, job.CompetitionID)
	require.Len(t, q.priorities, 1)
	assert.Equal(t, 1, q.priorities[0])
}

func TestManualTriggerIsIdempotent(t *testing.T) {
	q := &fakeQueueControl{existing: true}
	svc, _ := newAutomationService(q, fakeAlertSource{})

	job, created, err := svc.TriggerRecalculation(context.Background(), 7, "alice")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NotNil(t, job)
}

func TestManualTriggerInvalidCompetition(t *testing.T) {
	q := &fakeQueueControl{enqueueErr: queue.ErrInvalidCompetition}
	svc, _ := newAutomationService(q, fakeAlertSource{})

	_, _, err := svc.TriggerRecalculation(context.Background(), -1, "alice")
	assert.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestPauseResume(t *testing.T) {
	q := &fakeQueueControl{}
	svc, _ := newAutomationService(q, fakeAlertSource{})

	svc.Pause("alice")
	assert.True(t, q.IsPaused())
	assert.True(t, svc.QueueStatus().Paused)

	svc.Resume("alice")
	assert.False(t, q.IsPaused())
}

func TestHistoryValidatesCompetition(t *testing.T) {
	q := &fakeQueueControl{history: map[int][]*models.Job{3: {{ID: "j1"}}}}
	svc, _ := newAutomationService(q, fakeAlertSource{})

	jobs, err := svc.History(3)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = svc.History(0)
	assert.ErrorIs(t, err, ErrCompetitionNotFound)
}

func TestHealthStates(t *testing.T) {
	tests := []struct {
		name   string
		paused bool
		alerts fakeAlertSource
		want   HealthState
	}{
		{"all clear", false, fakeAlertSource{}, HealthHealthy},
		{"paused", true, fakeAlertSource{}, HealthDegraded},
		{"open alert", false, fakeAlertSource{active: 1}, HealthDegraded},
		{"failure rate critical", false, fakeAlertSource{rate: 0.6, samples: 10}, HealthUnhealthy},
		{"high rate but few samples", false, fakeAlertSource{rate: 1.0, samples: 2}, HealthHealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueueControl{paused: tt.paused}
			svc, _ := newAutomationService(q, tt.alerts)
			assert.Equal(t, tt.want, svc.Health().State)
		})
	}
}

func TestUpdateSettingsAllOrNothing(t *testing.T) {
	q := &fakeQueueControl{}
	svc, store := newAutomationService(q, fakeAlertSource{})

	next := svc.GetSettings()
	next.WorkerCount = 4
	next.JobTimeout = 45 * time.Second
	require.NoError(t, svc.UpdateSettings(next, "alice"))
	assert.Equal(t, 4, store.Current().WorkerCount)

	bad := store.Current()
	bad.WorkerCount = 0
	bad.MaxAttempts = 99
	err := svc.UpdateSettings(bad, "alice")
	require.ErrorIs(t, err, ErrValidationFailed)

	// Nothing from the rejected update applied.
	assert.Equal(t, 4, store.Current().WorkerCount)
	assert.Equal(t, models.DefaultAutomationSettings().MaxAttempts, store.Current().MaxAttempts)
}
