package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := NewJobStore(fixedClock{now: now})
	ctx := context.Background()
	job := review.Job{ID: "job-1", Request: review.ExtractionRequest{AppID: "com.example", Limit: 3}}

	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := store.CreateJob(ctx, job); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected duplicate job error, got %v", err)
	}
	queued, _ := store.GetJob(ctx, job.ID)
	if queued.Status != review.JobStatusQueued {
		t.Fatalf("expected queued status, got %s", queued.Status)
	}

	if err := store.UpdateJobStatus(ctx, job.ID, review.JobStatusRunning, ""); err != nil {
		t.Fatalf("UpdateJobStatus running error = %v", err)
	}
	outcome := review.ExtractionOutcome{AppID: "com.example", Reviews: []review.Review{{Body: "ok"}}}
	if err := store.SaveOutcome(ctx, job.ID, outcome); err != nil {
		t.Fatalf("SaveOutcome() error = %v", err)
	}
	outcome.Reviews[0].Body = "modified"

	if err := store.UpdateJobStatus(ctx, job.ID, review.JobStatusSucceeded, ""); err != nil {
		t.Fatalf("UpdateJobStatus succeeded error = %v", err)
	}
	final, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if final.Status != review.JobStatusSucceeded || final.Started == nil || final.Finished == nil {
		t.Fatalf("expected timestamps set, got %+v", final)
	}
	if !final.Started.Equal(now) {
		t.Fatalf("expected clock time, got %v", final.Started)
	}
	if final.Outcome == nil || final.Outcome.Reviews[0].Body != "ok" {
		t.Fatalf("expected stored outcome copy, got %+v", final.Outcome)
	}
}

func TestJobStoreUnknownJob(t *testing.T) {
	t.Parallel()

	store := NewJobStore(fixedClock{})
	ctx := context.Background()
	if _, err := store.GetJob(ctx, "missing"); !errors.Is(err, review.ErrJobNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.UpdateJobStatus(ctx, "missing", review.JobStatusFailed, "x"); !errors.Is(err, review.ErrJobNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.SaveOutcome(ctx, "missing", review.ExtractionOutcome{}); !errors.Is(err, review.ErrJobNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
