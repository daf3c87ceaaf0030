// Package dispatcher manages worker fan-out over the job queue.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
	"github.com/JakeFAU/realtime-review-crawler/internal/worker"
)

// Dispatcher fans out queue work to a pool of workers. Each worker runs its
// own cascade, so independent apps are acquired concurrently.
type Dispatcher struct {
	queue   review.Queue
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(queue review.Queue, workers []*worker.Worker) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
	}
}

// Run starts all workers and blocks until every worker has returned, which
// happens when the context ends or the queue is closed and drained.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	wg.Wait()
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, item review.QueueItem) error {
	if err := d.queue.Enqueue(ctx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}

// Close stops accepting work; workers exit once the backlog drains.
func (d *Dispatcher) Close() {
	d.queue.Close()
}
