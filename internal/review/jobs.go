package review

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrJobNotFound is returned by job stores for unknown ids.
	ErrJobNotFound = errors.New("job not found")
	// ErrQueueClosed is returned by queues after shutdown.
	ErrQueueClosed = errors.New("queue closed")
)

// JobStatus tracks the lifecycle of an asynchronous acquisition.
type JobStatus string

// Job lifecycle states.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	default:
		return false
	}
}

// Job is one queued acquisition and, once finished, its outcome.
type Job struct {
	ID        string             `json:"job_id"`
	Request   ExtractionRequest  `json:"request"`
	Status    JobStatus          `json:"status"`
	ErrorText string             `json:"error,omitempty"`
	Outcome   *ExtractionOutcome `json:"outcome,omitempty"`
	Submitted time.Time          `json:"submitted_at"`
	Started   *time.Time         `json:"started_at,omitempty"`
	Finished  *time.Time         `json:"finished_at,omitempty"`
}

// QueueItem is what travels through the work queue.
type QueueItem struct {
	JobID   string
	Request ExtractionRequest
}

// Queue buffers work for the worker pool.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
	Close()
}

// JobStore persists job state for status lookups.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string) error
	SaveOutcome(ctx context.Context, jobID string, outcome ExtractionOutcome) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}
