package trigger

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/queue"
)

type countingEnqueuer struct {
	mu    sync.Mutex
	calls map[int]int
	err   error
}

func (e *countingEnqueuer) TryEnqueue(competitionID int) (*models.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	if e.calls == nil {
		e.calls = make(map[int]int)
	}
	e.calls[competitionID]++
	return &models.Job{ID: "job-1", CompetitionID: competitionID, Status: models.JobStatusPending}, nil
}

func (e *countingEnqueuer) count(competitionID int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls[competitionID]
}

type fixedSettings struct {
	s models.AutomationSettings
}

func (f fixedSettings) Current() models.AutomationSettings { return f.s }

func newObserver(t *testing.T, enqueuer Enqueuer, window time.Duration) *MatchObserver {
	t.Helper()
	s := models.DefaultAutomationSettings()
	s.DebounceWindow = window
	o := NewMatchObserver(enqueuer, fixedSettings{s: s}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(o.Close)
	return o
}

func intPtr(v int) *int { return &v }

func completedMatch(competitionID int) *models.Match {
	return &models.Match{
		ID:            1,
		CompetitionID: competitionID,
		HomeTeamID:    10,
		AwayTeamID:    20,
		HomeGoals:     intPtr(1),
		AwayGoals:     intPtr(0),
		Status:        models.MatchStatusCompleted,
	}
}

func waitForCount(t *testing.T, e *countingEnqueuer, competitionID, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if e.count(competitionID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, want, e.count(competitionID))
}

func TestRapidEditsCollapseIntoOneJob(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	o := newObserver(t, enqueuer, 50*time.Millisecond)

	before := completedMatch(1)
	for i := 0; i < 10; i++ {
		after := completedMatch(1)
		after.HomeGoals = intPtr(i)
		o.AfterUpdate(before, after)
		before = after
	}

	waitForCount(t, enqueuer, 1, 1)
	// Nothing further fires once the window closed.
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, enqueuer.count(1))
}

func TestIrrelevantUpdateIsIgnored(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	o := newObserver(t, enqueuer, 20*time.Millisecond)

	// Date change on a scheduled match touches no standings field.
	before := completedMatch(1)
	before.Status = models.MatchStatusScheduled
	before.HomeGoals = nil
	before.AwayGoals = nil
	after := *before
	after.Date = before.Date.Add(time.Hour)
	o.AfterUpdate(before, &after)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, enqueuer.count(1))
}

func TestStatusTransitionsTrigger(t *testing.T) {
	tests := []struct {
		name string
		from models.MatchStatus
		to   models.MatchStatus
		want int
	}{
		{"into completed", models.MatchStatusLive, models.MatchStatusCompleted, 1},
		{"out of completed", models.MatchStatusCompleted, models.MatchStatusCancelled, 1},
		{"scheduled to live", models.MatchStatusScheduled, models.MatchStatusLive, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enqueuer := &countingEnqueuer{}
			o := newObserver(t, enqueuer, 20*time.Millisecond)

			before := completedMatch(1)
			before.Status = tt.from
			after := completedMatch(1)
			after.Status = tt.to
			o.AfterUpdate(before, after)

			time.Sleep(60 * time.Millisecond)
			assert.Equal(t, tt.want, enqueuer.count(1))
		})
	}
}

func TestCreateAndDeleteOfCompletedMatchTrigger(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	o := newObserver(t, enqueuer, 20*time.Millisecond)

	o.AfterCreate(completedMatch(1))
	waitForCount(t, enqueuer, 1, 1)

	o.AfterDelete(completedMatch(2))
	waitForCount(t, enqueuer, 2, 1)

	// Deleting a scheduled match never contributed to the table.
	scheduled := completedMatch(3)
	scheduled.Status = models.MatchStatusScheduled
	o.AfterDelete(scheduled)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, enqueuer.count(3))
}

func TestSeparateCompetitionsDebounceIndependently(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	o := newObserver(t, enqueuer, 20*time.Millisecond)

	o.AfterCreate(completedMatch(1))
	o.AfterCreate(completedMatch(2))

	waitForCount(t, enqueuer, 1, 1)
	waitForCount(t, enqueuer, 2, 1)
}

func TestFullQueueDropsWithoutPanic(t *testing.T) {
	enqueuer := &countingEnqueuer{err: queue.ErrQueueFull}
	o := newObserver(t, enqueuer, 10*time.Millisecond)

	require.NotPanics(t, func() {
		o.AfterCreate(completedMatch(1))
		time.Sleep(50 * time.Millisecond)
	})
}

func TestNilEventsAreHarmless(t *testing.T) {
	enqueuer := &countingEnqueuer{}
	o := newObserver(t, enqueuer, 10*time.Millisecond)

	require.NotPanics(t, func() {
		o.AfterCreate(nil)
		o.AfterUpdate(nil, nil)
		o.AfterDelete(nil)
	})
}
