// Package queue holds pending refresh triggers between the scheduler and the
// worker that runs the pipeline.
//
// The queue is bounded and never blocks producers: a trigger that does not
// fit is rejected, which is how overlapping refresh requests are coalesced.
package queue

import (
	"context"
	"sync"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/pkg/metrics"
)

const defaultCapacity = 1

// Trigger is the payload flowing through the queue.
type Trigger = model.Trigger

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a trigger. It returns ErrFull when the queue is at
	// capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, t Trigger) error

	// Dequeue returns a channel receiving triggers. The channel is closed
	// when the queue is closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) <-chan Trigger

	// Len returns the number of pending triggers.
	Len() int

	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	triggers chan Trigger
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.triggers = make(chan Trigger, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a trigger without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Trigger) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return err
	}

	select {
	case q.triggers <- t:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.triggers))
		return nil
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "full")
		return ErrFull
	}
}

// Dequeue returns a channel that receives triggers as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Trigger {
	out := make(chan Trigger)
	go func() {
		defer close(out)
		for {
			select {
			case t, ok := <-q.triggers:
				if !ok {
					return
				}
				metrics.UpdateQueueSize(len(q.triggers))
				select {
				case out <- t:
					metrics.RecordQueueDequeue()
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of pending triggers.
func (q *InMemoryQueue) Len() int {
	size := len(q.triggers)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops accepting triggers. Pending triggers are still delivered.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.triggers)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
