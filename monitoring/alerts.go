package monitoring

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

const (
	RuleFailureRate = "failure-rate"
	RuleQueueDepth  = "queue-depth"
	RuleLatency     = "calculation-latency"
	RuleExhausted   = "retries-exhausted"
)

const systemActor = "system"

var (
	ErrAlertNotFound    = errors.New("alert not found")
	ErrAlertNotActive   = errors.New("alert is not active")
	ErrAlertAlreadyDone = errors.New("alert is already resolved")
)

// Thresholds configures the rule evaluations.
type Thresholds struct {
	FailureRate       float64       // terminal failure fraction in the rolling window
	FailureRateWindow time.Duration // rolling window length
	MinSamples        int           // outcomes needed before the rate rule fires
	QueueDepth        int           // pending jobs before the depth rule fires
	Latency           time.Duration // single-job duration before the latency rule fires
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		FailureRate:       0.5,
		FailureRateWindow: 5 * time.Minute,
		MinSamples:        5,
		QueueDepth:        25,
		Latency:           10 * time.Second,
	}
}

type outcome struct {
	at time.Time
	ok bool
}

// AlertManager evaluates threshold rules on every observed job outcome and
// keeps the operator-facing alert lifecycle. At most one active alert
// exists per rule; a condition clearing auto-resolves it attributed to the
// system. Alerts are independent of retries: a retry-1 failure can raise
// an alert that later auto-resolves even though the job succeeded on
// retry 2.
type AlertManager struct {
	thresholds Thresholds
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	outcomes []outcome
	active   map[string]*models.Alert // by rule id
	alerts   []*models.Alert          // newest last, bounded
}

const alertHistoryLimit = 100

func NewAlertManager(thresholds Thresholds, logger *slog.Logger) *AlertManager {
	return &AlertManager{
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
		active:     make(map[string]*models.Alert),
	}
}

// Rules lists the configured evaluations for the admin surface.
func (a *AlertManager) Rules() []models.AlertRule {
	return []models.AlertRule{
		{
			ID:          RuleFailureRate,
			Description: fmt.Sprintf("terminal failure rate above %.0f%% over %s", a.thresholds.FailureRate*100, a.thresholds.FailureRateWindow),
			Severity:    models.AlertSeverityCritical,
		},
		{
			ID:          RuleQueueDepth,
			Description: fmt.Sprintf("queue depth above %d", a.thresholds.QueueDepth),
			Severity:    models.AlertSeverityWarning,
		},
		{
			ID:          RuleLatency,
			Description: fmt.Sprintf("single recalculation slower than %s", a.thresholds.Latency),
			Severity:    models.AlertSeverityWarning,
		},
		{
			ID:          RuleExhausted,
			Description: "a recalculation job exhausted all retry attempts",
			Severity:    models.AlertSeverityCritical,
		},
	}
}

func (a *AlertManager) JobEnqueued(job *models.Job, depth int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evaluateDepthLocked(depth)
}

func (a *AlertManager) JobStarted(job *models.Job, depth, inFlight int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.evaluateDepthLocked(depth)
}

func (a *AlertManager) JobSucceeded(job *models.Job, duration time.Duration, entries []*models.TableEntry, warnings int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recordOutcomeLocked(true)
	a.evaluateFailureRateLocked()
	if duration > a.thresholds.Latency {
		a.raiseLocked(RuleLatency, models.AlertSeverityWarning,
			fmt.Sprintf("recalculation of competition %d took %s", job.CompetitionID, duration.Round(time.Millisecond)))
	}
}

func (a *AlertManager) JobFailed(job *models.Job, duration time.Duration, err error, terminal bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if terminal {
		a.recordOutcomeLocked(false)
		a.raiseLocked(RuleExhausted, models.AlertSeverityCritical,
			fmt.Sprintf("competition %d failed after %d attempts: %s", job.CompetitionID, job.Attempt, job.Error))
	}
	a.evaluateFailureRateLocked()
}

func (a *AlertManager) recordOutcomeLocked(ok bool) {
	now := a.now()
	a.outcomes = append(a.outcomes, outcome{at: now, ok: ok})
	cutoff := now.Add(-a.thresholds.FailureRateWindow)
	trimmed := a.outcomes[:0]
	for _, o := range a.outcomes {
		if o.at.After(cutoff) {
			trimmed = append(trimmed, o)
		}
	}
	a.outcomes = trimmed
}

func (a *AlertManager) evaluateFailureRateLocked() {
	if len(a.outcomes) < a.thresholds.MinSamples {
		return
	}
	failed := 0
	for _, o := range a.outcomes {
		if !o.ok {
			failed++
		}
	}
	rate := float64(failed) / float64(len(a.outcomes))
	if rate >= a.thresholds.FailureRate {
		a.raiseLocked(RuleFailureRate, models.AlertSeverityCritical,
			fmt.Sprintf("%.0f%% of recent recalculations failed (%d of %d)", rate*100, failed, len(a.outcomes)))
	} else {
		a.autoResolveLocked(RuleFailureRate)
	}
}

func (a *AlertManager) evaluateDepthLocked(depth int) {
	if depth > a.thresholds.QueueDepth {
		a.raiseLocked(RuleQueueDepth, models.AlertSeverityWarning,
			fmt.Sprintf("recalculation queue depth at %d", depth))
	} else {
		a.autoResolveLocked(RuleQueueDepth)
	}
}

// raiseLocked creates an alert for the rule unless one is already open.
func (a *AlertManager) raiseLocked(ruleID string, severity models.AlertSeverity, message string) {
	if _, open := a.active[ruleID]; open {
		return
	}
	alert := &models.Alert{
		ID:          uuid.NewString(),
		RuleID:      ruleID,
		Severity:    severity,
		Message:     message,
		Status:      models.AlertStatusActive,
		TriggeredAt: a.now(),
	}
	a.active[ruleID] = alert
	a.alerts = append(a.alerts, alert)
	if len(a.alerts) > alertHistoryLimit {
		a.alerts = a.alerts[len(a.alerts)-alertHistoryLimit:]
	}
	a.logger.Warn("alert raised",
		slog.String("rule_id", ruleID),
		slog.String("severity", string(severity)),
		slog.String("message", message),
	)
}

func (a *AlertManager) autoResolveLocked(ruleID string) {
	alert, open := a.active[ruleID]
	if !open {
		return
	}
	a.resolveAlertLocked(alert, systemActor)
	a.logger.Info("alert auto-resolved", slog.String("rule_id", ruleID))
}

func (a *AlertManager) resolveAlertLocked(alert *models.Alert, actor string) {
	now := a.now()
	alert.Status = models.AlertStatusResolved
	alert.ResolvedBy = &actor
	alert.ResolvedAt = &now
	delete(a.active, alert.RuleID)
}

// List returns alerts newest first, optionally filtered by status.
func (a *AlertManager) List(status *models.AlertStatus) []*models.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.Alert, 0, len(a.alerts))
	for i := len(a.alerts) - 1; i >= 0; i-- {
		alert := a.alerts[i]
		if status != nil && alert.Status != *status {
			continue
		}
		c := *alert
		out = append(out, &c)
	}
	return out
}

// Acknowledge moves an active alert to acknowledged, recording the actor.
func (a *AlertManager) Acknowledge(id, actor string) (*models.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	alert := a.findLocked(id)
	if alert == nil {
		return nil, ErrAlertNotFound
	}
	if alert.Status != models.AlertStatusActive {
		return nil, ErrAlertNotActive
	}
	now := a.now()
	alert.Status = models.AlertStatusAcknowledged
	alert.AcknowledgedBy = &actor
	alert.AcknowledgedAt = &now
	c := *alert
	return &c, nil
}

// Resolve closes an active or acknowledged alert, recording the actor.
func (a *AlertManager) Resolve(id, actor string) (*models.Alert, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	alert := a.findLocked(id)
	if alert == nil {
		return nil, ErrAlertNotFound
	}
	if alert.Status == models.AlertStatusResolved {
		return nil, ErrAlertAlreadyDone
	}
	a.resolveAlertLocked(alert, actor)
	c := *alert
	return &c, nil
}

// ActiveCount feeds the aggregate health indicator.
func (a *AlertManager) ActiveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.active)
}

// FailureRate reports the current rolling terminal-failure fraction and
// sample count.
func (a *AlertManager) FailureRate() (float64, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.outcomes) == 0 {
		return 0, 0
	}
	failed := 0
	for _, o := range a.outcomes {
		if !o.ok {
			failed++
		}
	}
	return float64(failed) / float64(len(a.outcomes)), len(a.outcomes)
}

func (a *AlertManager) findLocked(id string) *models.Alert {
	for _, alert := range a.alerts {
		if alert.ID == id {
			return alert
		}
	}
	return nil
}
