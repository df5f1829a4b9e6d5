// Package worker runs the refresh pipeline for triggers read off the queue.
//
// One worker consumes the queue, so at most one pipeline run is in flight.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// Trigger is what the worker reads off the queue.
type Trigger = model.Trigger

// Runner executes one pipeline run for a trigger.
type Runner interface {
	Run(ctx context.Context, t Trigger) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, t Trigger) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, t Trigger) error { return f(ctx, t) }

// Queue defines how the worker receives triggers.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Trigger
}

// Worker processes triggers until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is called or
	// the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for it to exit. A run already in
	// progress finishes first.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	runner Runner
	name   string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, runner Runner, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		runner:   runner,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	triggers := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-triggers:
			if !ok {
				return
			}
			if err := w.process(ctx, t); err != nil {
				w.logger.Debug(ctx, "refresh run failed",
					logger.String("trigger", string(t.Source)),
					logger.Error(err),
				)
			}
		}
	}
}

// Done is closed once the loop has exited.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, t Trigger) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.runner.Run(ctx, t); err != nil {
		metrics.RecordWorkerError()
		return err
	}
	return nil
}
