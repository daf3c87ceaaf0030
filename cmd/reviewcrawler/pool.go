package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/realtime-review-crawler/internal/clock/system"
	"github.com/JakeFAU/realtime-review-crawler/internal/dispatcher"
	queueMemory "github.com/JakeFAU/realtime-review-crawler/internal/queue/memory"
	"github.com/JakeFAU/realtime-review-crawler/internal/review"
	storeMemory "github.com/JakeFAU/realtime-review-crawler/internal/storage/memory"
	"github.com/JakeFAU/realtime-review-crawler/internal/worker"
)

// pool is the bounded queue plus fixed worker set behind batch and serve.
type pool struct {
	clock    review.Clock
	store    *storeMemory.JobStore
	dispatch *dispatcher.Dispatcher
	done     chan struct{}
}

func newPool(svc *services) *pool {
	clock := system.New()
	store := storeMemory.NewJobStore(clock)
	queue := queueMemory.NewQueue(svc.cfg.Batch.QueueDepth)

	workers := make([]*worker.Worker, 0, svc.cfg.Batch.Concurrency)
	for i := 0; i < svc.cfg.Batch.Concurrency; i++ {
		workers = append(workers, worker.New(
			queue,
			store,
			svc.acquirer,
			worker.Config{},
			svc.logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	return &pool{
		clock:    clock,
		store:    store,
		dispatch: dispatcher.New(queue, workers),
		done:     make(chan struct{}),
	}
}

// start runs the workers in the background until ctx ends or the pool is drained.
func (p *pool) start(ctx context.Context) {
	go func() {
		defer close(p.done)
		p.dispatch.Run(ctx)
	}()
}

// submit records a queued job and hands it to the workers.
func (p *pool) submit(ctx context.Context, jobID string, req review.ExtractionRequest) error {
	job := review.Job{
		ID:        jobID,
		Request:   req,
		Status:    review.JobStatusQueued,
		Submitted: p.clock.Now(),
	}
	if err := p.store.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if err := p.dispatch.Enqueue(ctx, review.QueueItem{JobID: jobID, Request: req}); err != nil {
		_ = p.store.UpdateJobStatus(context.WithoutCancel(ctx), jobID, review.JobStatusFailed, err.Error())
		return err
	}
	return nil
}

// drain stops intake and waits for the workers to finish the backlog.
func (p *pool) drain() {
	p.dispatch.Close()
	<-p.done
}
