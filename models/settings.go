package models

import (
	"errors"
	"fmt"
	"time"
)

// Validation bounds for operator-tunable automation settings. Updates
// outside these ranges are rejected whole; no partial application.
const (
	MinWorkerCount = 1
	MaxWorkerCount = 16

	MinJobTimeout = 1 * time.Second
	MaxJobTimeout = 10 * time.Minute

	MinMaxAttempts = 1
	MaxMaxAttempts = 10

	MinDebounceWindow = 50 * time.Millisecond
	MaxDebounceWindow = 10 * time.Second

	MinQueueCapacity = 1
	MaxQueueCapacity = 1024

	MinMaxSnapshots = 1
	MaxMaxSnapshots = 100

	MinSnapshotMaxAge = 24 * time.Hour
	MaxSnapshotMaxAge = 365 * 24 * time.Hour
)

var ErrSettingsOutOfRange = errors.New("automation settings out of range")

// AutomationSettings are the runtime-tunable knobs of the recalculation
// engine. A copy is handed out on read; updates go through Validate first.
type AutomationSettings struct {
	WorkerCount        int           `json:"worker_count"`
	JobTimeout         time.Duration `json:"job_timeout"`
	MaxAttempts        int           `json:"max_attempts"`
	DebounceWindow     time.Duration `json:"debounce_window"`
	QueueCapacity      int           `json:"queue_capacity"`
	MaxSnapshots       int           `json:"max_snapshots"`
	SnapshotMaxAge     time.Duration `json:"snapshot_max_age"`
	PreferClubIdentity bool          `json:"prefer_club_identity"`
}

// DefaultAutomationSettings returns the values used when nothing is
// configured in the environment.
func DefaultAutomationSettings() AutomationSettings {
	return AutomationSettings{
		WorkerCount:        2,
		JobTimeout:         30 * time.Second,
		MaxAttempts:        3,
		DebounceWindow:     300 * time.Millisecond,
		QueueCapacity:      64,
		MaxSnapshots:       10,
		SnapshotMaxAge:     30 * 24 * time.Hour,
		PreferClubIdentity: true,
	}
}

// Validate checks every field against its bounds and reports the first
// violation. Callers must not apply any field of an invalid settings value.
func (s AutomationSettings) Validate() error {
	if s.WorkerCount < MinWorkerCount || s.WorkerCount > MaxWorkerCount {
		return fmt.Errorf("%w: worker_count %d not in [%d, %d]", ErrSettingsOutOfRange, s.WorkerCount, MinWorkerCount, MaxWorkerCount)
	}
	if s.JobTimeout < MinJobTimeout || s.JobTimeout > MaxJobTimeout {
		return fmt.Errorf("%w: job_timeout %s not in [%s, %s]", ErrSettingsOutOfRange, s.JobTimeout, MinJobTimeout, MaxJobTimeout)
	}
	if s.MaxAttempts < MinMaxAttempts || s.MaxAttempts > MaxMaxAttempts {
		return fmt.Errorf("%w: max_attempts %d not in [%d, %d]", ErrSettingsOutOfRange, s.MaxAttempts, MinMaxAttempts, MaxMaxAttempts)
	}
	if s.DebounceWindow < MinDebounceWindow || s.DebounceWindow > MaxDebounceWindow {
		return fmt.Errorf("%w: debounce_window %s not in [%s, %s]", ErrSettingsOutOfRange, s.DebounceWindow, MinDebounceWindow, MaxDebounceWindow)
	}
	if s.QueueCapacity < MinQueueCapacity || s.QueueCapacity > MaxQueueCapacity {
		return fmt.Errorf("%w: queue_capacity %d not in [%d, %d]", ErrSettingsOutOfRange, s.QueueCapacity, MinQueueCapacity, MaxQueueCapacity)
	}
	if s.MaxSnapshots < MinMaxSnapshots || s.MaxSnapshots > MaxMaxSnapshots {
		return fmt.Errorf("%w: max_snapshots %d not in [%d, %d]", ErrSettingsOutOfRange, s.MaxSnapshots, MinMaxSnapshots, MaxMaxSnapshots)
	}
	if s.SnapshotMaxAge < MinSnapshotMaxAge || s.SnapshotMaxAge > MaxSnapshotMaxAge {
		return fmt.Errorf("%w: snapshot_max_age %s not in [%s, %s]", ErrSettingsOutOfRange, s.SnapshotMaxAge, MinSnapshotMaxAge, MaxSnapshotMaxAge)
	}
	return nil
}
