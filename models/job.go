package models

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusSucceeded, JobStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible for the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// Job is one queued unit of recalculation work scoped to a single
// competition. The competition id doubles as the dedup key: at most one
// non-terminal job exists per competition.
type Job struct {
	ID            string     `json:"id"`
	CompetitionID int        `json:"competition_id"`
	Priority      int        `json:"priority"`
	Attempt       int        `json:"attempt"`
	Status        JobStatus  `json:"status"`
	EnqueuedAt    time.Time  `json:"enqueued_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Clone returns a copy safe to hand out of the queue's lock.
func (j *Job) Clone() *Job {
	c := *j
	if j.StartedAt != nil {
		v := *j.StartedAt
		c.StartedAt = &v
	}
	if j.FinishedAt != nil {
		v := *j.FinishedAt
		c.FinishedAt = &v
	}
	return &c
}
