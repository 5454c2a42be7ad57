package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
	"github.com/headonpro/viktoria-wertheim-backend-sub022/standings"
)

var (
	ErrQueueFull          = errors.New("recalculation queue is full")
	ErrQueueClosed        = errors.New("recalculation queue is closed")
	ErrJobTimeout         = errors.New("timeout")
	ErrInvalidCompetition = errors.New("invalid competition id")
)

// Snapshotter captures a competition's current table before a
// recalculation overwrites it.
type Snapshotter interface {
	CapturePreRecalculation(ctx context.Context, competitionID int) error
}

// Recalculator computes a fresh entry set for a competition. It must not
// persist anything; persistence is sequenced by the queue.
type Recalculator interface {
	Recalculate(ctx context.Context, competitionID int) ([]*models.TableEntry, []standings.Warning, error)
}

// TableWriter atomically replaces a competition's persisted table.
type TableWriter interface {
	ReplaceByCompetition(ctx context.Context, competitionID int, entries []*models.TableEntry) error
}

// SettingsSource supplies the current automation settings. Timeout, retry
// and capacity values are read per job so operator updates apply without a
// restart; the worker count applies on the next Run.
type SettingsSource interface {
	Current() models.AutomationSettings
}

// Observer receives job lifecycle notifications outside the queue lock.
// Implementations must be non-blocking; monitoring and the live hub hang
// off this.
type Observer interface {
	JobEnqueued(job *models.Job, depth int)
	JobStarted(job *models.Job, depth, inFlight int)
	JobSucceeded(job *models.Job, duration time.Duration, entries []*models.TableEntry, warnings int)
	JobFailed(job *models.Job, duration time.Duration, err error, terminal bool)
}

// Status is a point-in-time view of the queue for the admin surface.
type Status struct {
	Depth        int           `json:"depth"`
	InFlight     int           `json:"in_flight"`
	InFlightJobs []*models.Job `json:"in_flight_jobs"`
	Paused       bool          `json:"paused"`
}

const historyLimit = 20

// Queue serializes standings recalculation per competition. Invariants:
// at most one non-terminal job per competition (new requests merge into
// it), at most WorkerCount jobs processing globally, and per-competition
// FIFO order.
type Queue struct {
	snapshots Snapshotter
	recalc    Recalculator
	tables    TableWriter
	settings  SettingsSource
	logger    *slog.Logger
	observers []Observer

	mu         sync.Mutex
	pending    map[int]*models.Job
	order      []int
	processing map[int]*models.Job
	retrying   map[int]*models.Job
	// retryTimers holds the backoff timer per parked competition so
	// shutdown and requeue can stop it without a watcher goroutine.
	retryTimers map[int]*time.Timer
	history     map[int][]*models.Job
	paused      bool
	closed      bool

	// wake nudges one worker; workers drain all runnable jobs after
	// waking, re-signaling when more remain.
	wake chan struct{}
}

func New(
	snapshots Snapshotter,
	recalc Recalculator,
	tables TableWriter,
	settings SettingsSource,
	logger *slog.Logger,
	observers ...Observer,
) *Queue {
	return &Queue{
		snapshots:   snapshots,
		recalc:      recalc,
		tables:      tables,
		settings:    settings,
		logger:      logger,
		observers:   observers,
		pending:     make(map[int]*models.Job),
		processing:  make(map[int]*models.Job),
		retrying:    make(map[int]*models.Job),
		retryTimers: make(map[int]*time.Timer),
		history:     make(map[int][]*models.Job),
		wake:        make(chan struct{}, 1),
	}
}

// Enqueue requests a recalculation for a competition. If a job for the
// competition is already pending, processing, or awaiting retry, that job
// is returned with created=false and nothing is appended. Priority > 0
// jumps the pending order (used by manual operator triggers).
func (q *Queue) Enqueue(competitionID, priority int) (*models.Job, bool, error) {
	if competitionID <= 0 {
		return nil, false, fmt.Errorf("%w: %d", ErrInvalidCompetition, competitionID)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, false, ErrQueueClosed
	}
	if existing := q.findLocked(competitionID); existing != nil {
		clone := existing.Clone()
		q.mu.Unlock()
		return clone, false, nil
	}
	capacity := q.settings.Current().QueueCapacity
	if len(q.order) >= capacity {
		q.mu.Unlock()
		return nil, false, ErrQueueFull
	}

	job := &models.Job{
		ID:            uuid.NewString(),
		CompetitionID: competitionID,
		Priority:      priority,
		Status:        models.JobStatusPending,
		EnqueuedAt:    time.Now(),
	}
	q.pending[competitionID] = job
	if priority > 0 {
		q.order = append([]int{competitionID}, q.order...)
	} else {
		q.order = append(q.order, competitionID)
	}
	depth := len(q.order)
	clone := job.Clone()
	q.mu.Unlock()

	q.signal()
	for _, o := range q.observers {
		o.JobEnqueued(clone, depth)
	}
	return clone, true, nil
}

// TryEnqueue is the trigger-facing submit: bounded and non-blocking, with
// default priority.
func (q *Queue) TryEnqueue(competitionID int) (*models.Job, error) {
	job, _, err := q.Enqueue(competitionID, 0)
	return job, err
}

func (q *Queue) findLocked(competitionID int) *models.Job {
	if j, ok := q.pending[competitionID]; ok {
		return j
	}
	if j, ok := q.processing[competitionID]; ok {
		return j
	}
	if j, ok := q.retrying[competitionID]; ok {
		return j
	}
	return nil
}

// Run starts the worker pool and blocks until ctx is cancelled. The pool
// size is read from settings at start.
func (q *Queue) Run(ctx context.Context) error {
	workers := q.settings.Current().WorkerCount
	q.logger.Info("recalculation queue started", slog.Int("workers", workers))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			q.worker(gctx)
			return nil
		})
	}
	err := g.Wait()
	q.mu.Lock()
	q.closed = true
	for competitionID, timer := range q.retryTimers {
		timer.Stop()
		delete(q.retryTimers, competitionID)
	}
	q.mu.Unlock()
	q.logger.Info("recalculation queue stopped")
	return err
}

func (q *Queue) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
		for {
			job := q.next()
			if job == nil {
				break
			}
			q.execute(ctx, job)
		}
	}
}

// next pops the first pending competition that is not already processing.
// Returns nil when nothing is runnable (empty, paused, or all pending
// competitions blocked behind in-flight jobs).
func (q *Queue) next() *models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.paused || q.closed {
		return nil
	}
	for i, competitionID := range q.order {
		if _, busy := q.processing[competitionID]; busy {
			continue
		}
		job := q.pending[competitionID]
		delete(q.pending, competitionID)
		q.order = append(q.order[:i], q.order[i+1:]...)
		q.processing[competitionID] = job
		if len(q.order) > 0 {
			q.signalLocked()
		}
		return job
	}
	return nil
}

func (q *Queue) execute(ctx context.Context, job *models.Job) {
	s := q.settings.Current()

	q.mu.Lock()
	job.Status = models.JobStatusProcessing
	job.Attempt++
	started := time.Now()
	job.StartedAt = &started
	startedClone := job.Clone()
	depth := len(q.order)
	inFlight := len(q.processing)
	q.mu.Unlock()

	for _, o := range q.observers {
		o.JobStarted(startedClone, depth, inFlight)
	}

	jobCtx, cancel := context.WithTimeout(ctx, s.JobTimeout)
	entries, warnings, err := q.runJob(jobCtx, job.CompetitionID)
	cancel()
	duration := time.Since(started)

	if err == nil {
		q.finishSucceeded(job, duration, entries, warnings)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w after %s: %v", ErrJobTimeout, s.JobTimeout, err)
	}
	q.finishFailed(job, duration, err, s.MaxAttempts)
}

// runJob sequences one execution: snapshot the pre-state, recalculate,
// then persist. The snapshot always lands before the replace, so a crash
// in between leaves the old table with a usable recovery point.
func (q *Queue) runJob(ctx context.Context, competitionID int) ([]*models.TableEntry, []standings.Warning, error) {
	if err := q.snapshots.CapturePreRecalculation(ctx, competitionID); err != nil {
		return nil, nil, fmt.Errorf("pre-recalculation snapshot: %w", err)
	}
	entries, warnings, err := q.recalc.Recalculate(ctx, competitionID)
	if err != nil {
		return nil, nil, fmt.Errorf("recalculation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if err := q.tables.ReplaceByCompetition(ctx, competitionID, entries); err != nil {
		return nil, nil, fmt.Errorf("table replace: %w", err)
	}
	return entries, warnings, nil
}

func (q *Queue) finishSucceeded(job *models.Job, duration time.Duration, entries []*models.TableEntry, warnings []standings.Warning) {
	q.mu.Lock()
	finished := time.Now()
	job.Status = models.JobStatusSucceeded
	job.FinishedAt = &finished
	job.Error = ""
	delete(q.processing, job.CompetitionID)
	q.recordHistoryLocked(job)
	clone := job.Clone()
	q.mu.Unlock()

	q.signal()
	q.logger.Info("recalculation succeeded",
		slog.Int("competition_id", job.CompetitionID),
		slog.String("job_id", job.ID),
		slog.Duration("duration", duration),
		slog.Int("warnings", len(warnings)),
	)
	for _, w := range warnings {
		q.logger.Warn("calculation fallback",
			slog.Int("competition_id", job.CompetitionID),
			slog.Int("match_id", w.MatchID),
			slog.String("reason", w.Reason),
		)
	}
	for _, o := range q.observers {
		o.JobSucceeded(clone, duration, entries, len(warnings))
	}
}

func (q *Queue) finishFailed(job *models.Job, duration time.Duration, jobErr error, maxAttempts int) {
	q.mu.Lock()
	finished := time.Now()
	job.FinishedAt = &finished
	job.Error = jobErr.Error()
	delete(q.processing, job.CompetitionID)

	terminal := job.Attempt >= maxAttempts || q.closed
	if terminal {
		job.Status = models.JobStatusFailed
		q.recordHistoryLocked(job)
	} else {
		// failed -> pending again; parked until the backoff elapses so
		// the competition still merges duplicates meanwhile.
		job.Status = models.JobStatusPending
		job.FinishedAt = nil
		q.retrying[job.CompetitionID] = job
	}
	clone := job.Clone()
	q.mu.Unlock()

	q.signal()
	q.logger.Error("recalculation failed",
		slog.Int("competition_id", clone.CompetitionID),
		slog.String("job_id", clone.ID),
		slog.Int("attempt", clone.Attempt),
		slog.Bool("terminal", terminal),
		slog.Any("error", jobErr),
	)
	for _, o := range q.observers {
		o.JobFailed(clone, duration, jobErr, terminal)
	}
	if terminal {
		return
	}

	delay := backoffDelay(clone.Attempt)
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.retryTimers[job.CompetitionID] = time.AfterFunc(delay, func() {
		q.requeueRetry(job)
	})
	q.mu.Unlock()
}

func (q *Queue) requeueRetry(job *models.Job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.retrying[job.CompetitionID] != job {
		q.mu.Unlock()
		return
	}
	if timer, ok := q.retryTimers[job.CompetitionID]; ok {
		timer.Stop()
		delete(q.retryTimers, job.CompetitionID)
	}
	delete(q.retrying, job.CompetitionID)
	q.pending[job.CompetitionID] = job
	q.order = append(q.order, job.CompetitionID)
	q.mu.Unlock()
	q.signal()
}

// backoffDelay grows exponentially per attempt with +-20% jitter, capped.
func backoffDelay(attempt int) time.Duration {
	const (
		base     = 500 * time.Millisecond
		maxDelay = 30 * time.Second
	)
	d := base << uint(attempt-1)
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	jitter := time.Duration(float64(d) * 0.2 * (rand.Float64()*2 - 1))
	return d + jitter
}

func (q *Queue) recordHistoryLocked(job *models.Job) {
	h := append(q.history[job.CompetitionID], job.Clone())
	if len(h) > historyLimit {
		h = h[len(h)-historyLimit:]
	}
	q.history[job.CompetitionID] = h
}

// Pause stops workers from picking up new jobs; in-flight jobs finish.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	q.logger.Info("recalculation queue paused")
}

// Resume re-enables dequeue.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.signal()
	q.logger.Info("recalculation queue resumed")
}

func (q *Queue) IsPaused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	inFlight := make([]*models.Job, 0, len(q.processing))
	for _, j := range q.processing {
		inFlight = append(inFlight, j.Clone())
	}
	return Status{
		Depth:        len(q.order),
		InFlight:     len(q.processing),
		InFlightJobs: inFlight,
		Paused:       q.paused,
	}
}

// History returns the competition's recent terminal jobs, newest last.
func (q *Queue) History(competitionID int) []*models.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	h := q.history[competitionID]
	out := make([]*models.Job, 0, len(h))
	for _, j := range h {
		out = append(out, j.Clone())
	}
	return out
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// signalLocked is safe under q.mu because the channel send never blocks.
func (q *Queue) signalLocked() {
	q.signal()
}
