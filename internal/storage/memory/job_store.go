// Package memory keeps job state in process memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// ErrJobExists is returned when CreateJob sees a duplicate id.
var ErrJobExists = errors.New("job already exists")

// JobStore implements review.JobStore with a mutex-guarded map.
type JobStore struct {
	mu    sync.RWMutex
	jobs  map[string]review.Job
	clock review.Clock
}

// NewJobStore constructs a JobStore stamping transitions with clock.
func NewJobStore(clock review.Clock) *JobStore {
	return &JobStore{
		jobs:  make(map[string]review.Job),
		clock: clock,
	}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job review.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("%w: %s", ErrJobExists, job.ID)
	}
	if job.Status == "" {
		job.Status = review.JobStatusQueued
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus moves a job to status, stamping start and finish times.
func (s *JobStore) UpdateJobStatus(_ context.Context, jobID string, status review.JobStatus, errText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", review.ErrJobNotFound, jobID)
	}
	job.Status = status
	job.ErrorText = errText
	now := s.clock.Now()
	if status == review.JobStatusRunning && job.Started == nil {
		job.Started = &now
	}
	if status.Terminal() {
		job.Finished = &now
	}
	s.jobs[jobID] = job
	return nil
}

// SaveOutcome attaches the acquisition result to a job.
func (s *JobStore) SaveOutcome(_ context.Context, jobID string, outcome review.ExtractionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", review.ErrJobNotFound, jobID)
	}
	out := outcome
	out.Reviews = append([]review.Review(nil), outcome.Reviews...)
	job.Outcome = &out
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (review.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return review.Job{}, fmt.Errorf("%w: %s", review.ErrJobNotFound, jobID)
	}
	return job, nil
}
