package trigger

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/queue"
)

// Enqueuer is the bounded, non-blocking submit side of the job queue.
type Enqueuer interface {
	TryEnqueue(competitionID int) (*models.Job, error)
}

// SettingsSource supplies the debounce window per event so operator
// updates apply immediately.
type SettingsSource interface {
	Current() models.AutomationSettings
}

// MatchObserver watches match lifecycle events and turns relevant changes
// into recalculation requests. It never computes standings, never blocks
// the caller, and never lets an internal error escape into the match write
// path.
type MatchObserver struct {
	enqueuer Enqueuer
	settings SettingsSource
	logger   *slog.Logger

	mu     sync.Mutex
	timers map[int]*time.Timer
	closed bool
}

func NewMatchObserver(enqueuer Enqueuer, settings SettingsSource, logger *slog.Logger) *MatchObserver {
	return &MatchObserver{
		enqueuer: enqueuer,
		settings: settings,
		logger:   logger,
		timers:   make(map[int]*time.Timer),
	}
}

// AfterCreate handles a newly entered match record.
func (o *MatchObserver) AfterCreate(match *models.Match) {
	defer o.recoverPanic("afterCreate")
	if match == nil {
		return
	}
	if match.CountsForTable() {
		o.schedule(match.CompetitionID)
	}
}

// AfterUpdate handles a match edit. Previous carries the record before the
// write; only transitions that affect standings schedule a recalculation.
func (o *MatchObserver) AfterUpdate(previous, updated *models.Match) {
	defer o.recoverPanic("afterUpdate")
	if updated == nil {
		return
	}
	if !o.relevantUpdate(previous, updated) {
		return
	}
	o.schedule(updated.CompetitionID)
}

// AfterDelete handles a match removal. Only matches that contributed to
// the table require recomputation.
func (o *MatchObserver) AfterDelete(match *models.Match) {
	defer o.recoverPanic("afterDelete")
	if match == nil {
		return
	}
	if match.Status == models.MatchStatusCompleted {
		o.schedule(match.CompetitionID)
	}
}

// relevantUpdate applies the trigger contract: status moving into or out
// of completed, or a goal count changing while completed.
func (o *MatchObserver) relevantUpdate(previous, updated *models.Match) bool {
	wasCompleted := previous != nil && previous.Status == models.MatchStatusCompleted
	isCompleted := updated.Status == models.MatchStatusCompleted

	if wasCompleted != isCompleted {
		return true
	}
	if !isCompleted {
		return false
	}
	if previous == nil {
		return true
	}
	return !intPtrEqual(previous.HomeGoals, updated.HomeGoals) ||
		!intPtrEqual(previous.AwayGoals, updated.AwayGoals)
}

// schedule starts or resets the competition's debounce timer. A burst of
// edits within the window collapses into a single enqueue.
func (o *MatchObserver) schedule(competitionID int) {
	if competitionID <= 0 {
		return
	}
	window := o.settings.Current().DebounceWindow

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	if timer, ok := o.timers[competitionID]; ok {
		timer.Reset(window)
		return
	}
	o.timers[competitionID] = time.AfterFunc(window, func() {
		o.fire(competitionID)
	})
}

func (o *MatchObserver) fire(competitionID int) {
	defer o.recoverPanic("fire")

	o.mu.Lock()
	delete(o.timers, competitionID)
	closed := o.closed
	o.mu.Unlock()
	if closed {
		return
	}

	job, err := o.enqueuer.TryEnqueue(competitionID)
	if err != nil {
		// Dropping is deliberate: the match write path is never
		// back-pressured. The next relevant match event re-triggers.
		if errors.Is(err, queue.ErrQueueFull) {
			o.logger.Warn("recalculation request dropped, queue full",
				slog.Int("competition_id", competitionID))
			return
		}
		o.logger.Error("failed to enqueue recalculation",
			slog.Int("competition_id", competitionID),
			slog.Any("error", err))
		return
	}
	o.logger.Debug("recalculation enqueued",
		slog.Int("competition_id", competitionID),
		slog.String("job_id", job.ID))
}

// Close stops all pending debounce timers. Events observed afterwards are
// ignored.
func (o *MatchObserver) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	for id, timer := range o.timers {
		timer.Stop()
		delete(o.timers, id)
	}
}

func (o *MatchObserver) recoverPanic(hook string) {
	if r := recover(); r != nil {
		o.logger.Error("match trigger panic recovered",
			slog.String("hook", hook),
			slog.Any("panic", r))
	}
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
