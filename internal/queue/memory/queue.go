// Package memory provides the in-process work queue used by batch and API jobs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/realtime-review-crawler/internal/review"
)

// ErrClosed is returned once the queue has been closed.
var ErrClosed = review.ErrQueueClosed

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch     chan review.QueueItem
	mu     sync.RWMutex
	closed bool
}

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch: make(chan review.QueueItem, capacity),
	}
}

// Enqueue pushes an item or returns when the context ends. Enqueue after
// Close fails with ErrClosed.
func (q *Queue) Enqueue(ctx context.Context, item review.QueueItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- item:
		return nil
	}
}

// Dequeue pops the next item, respecting context cancellation.
func (q *Queue) Dequeue(ctx context.Context) (review.QueueItem, error) {
	select {
	case <-ctx.Done():
		return review.QueueItem{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case item, ok := <-q.ch:
		if !ok {
			return review.QueueItem{}, ErrClosed
		}
		return item, nil
	}
}

// Len reports how many items are waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close closes the underlying channel for shutdown. Items already queued can
// still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
