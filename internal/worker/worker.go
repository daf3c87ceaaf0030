// Package worker executes queued acquisitions.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/metrics"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// Config controls Worker behavior.
type Config struct {
	// JobTimeout bounds one acquisition; zero means no extra bound.
	JobTimeout time.Duration
}

// Worker consumes queue items and runs them through the acquirer.
type Worker struct {
	queue    review.Queue
	jobStore review.JobStore
	acquirer review.Acquirer
	cfg      Config
	logger   *zap.Logger
}

// New constructs a Worker.
func New(
	queue review.Queue,
	jobStore review.JobStore,
	acquirer review.Acquirer,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		jobStore: jobStore,
		acquirer: acquirer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run blocks, consuming queue items until the context finishes or the queue
// is closed and drained.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, review.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item review.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	logger := w.logger.With(zap.String("job_id", item.JobID), zap.String("app_id", item.Request.AppID))
	if w.acquirer == nil {
		logger.Error("no acquirer configured")
		w.finish(ctx, logger, item.JobID, review.JobStatusFailed, "no acquirer configured")
		return
	}
	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, review.JobStatusRunning, ""); err != nil {
		logger.Error("update job status failed", zap.Error(err))
		return
	}

	outcome, err := w.acquire(ctx, item.Request)
	if err != nil {
		status := review.JobStatusFailed
		if ctx.Err() != nil {
			status = review.JobStatusCanceled
		}
		logger.Warn("acquisition failed", zap.Error(err))
		w.finish(ctx, logger, item.JobID, status, err.Error())
		return
	}

	if err := w.jobStore.SaveOutcome(ctx, item.JobID, outcome); err != nil {
		logger.Error("save outcome failed", zap.Error(err))
		w.finish(ctx, logger, item.JobID, review.JobStatusFailed, err.Error())
		return
	}
	logger.Info("job complete",
		zap.Int("reviews", len(outcome.Reviews)),
		zap.String("channel_used", string(outcome.ChannelUsed)),
	)
	w.finish(ctx, logger, item.JobID, review.JobStatusSucceeded, "")
}

// acquire runs one acquisition; a panic inside the cascade fails the job
// instead of the process.
func (w *Worker) acquire(ctx context.Context, req review.ExtractionRequest) (outcome review.ExtractionOutcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			outcome = review.ExtractionOutcome{}
			err = fmt.Errorf("acquire panic: %v", p)
		}
	}()
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}
	outcome, err = w.acquirer.Acquire(ctx, req)
	if err != nil {
		return review.ExtractionOutcome{}, fmt.Errorf("acquire: %w", err)
	}
	return outcome, nil
}

// finish records a terminal status. It uses a detached context so a
// canceled job still gets its final state written.
func (w *Worker) finish(ctx context.Context, logger *zap.Logger, jobID string, status review.JobStatus, errText string) {
	metrics.ObserveJob(string(status))
	if err := w.jobStore.UpdateJobStatus(context.WithoutCancel(ctx), jobID, status, errText); err != nil {
		logger.Error("final job status update failed", zap.Error(err))
	}
}
