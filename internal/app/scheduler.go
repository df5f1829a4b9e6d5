package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	triggerqueue "github.com/okian/standings/internal/adapters/mq/queue"
	"github.com/okian/standings/internal/domain/classify"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// stopRequested is the stop reason recorded for an operator stop.
const stopRequested = "stopped by request"

// Refresh queues a manual refresh. It returns ErrRunInProgress when a run is
// already running or pending, and ErrSchedulerStopped while automatic refresh
// is stopped.
func (s *Service) Refresh(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case !s.started:
		s.mu.Unlock()
		return model.ErrNotStarted
	case s.state == model.SchedulerStopped:
		s.mu.Unlock()
		metrics.RecordTriggerSkipped("stopped")
		return model.ErrSchedulerStopped
	}
	s.mu.Unlock()

	return s.trigger(ctx, model.TriggerManual)
}

// StopScheduler stops automatic refresh. A run already in flight completes and
// still publishes its result.
func (s *Service) StopScheduler(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return model.ErrNotStarted
	}
	if s.state != model.SchedulerStopped {
		s.stopReason = stopRequested
		s.setStateLocked(model.SchedulerStopped)
	}
	done := s.haltTicksLocked()
	s.mu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.logger.Info(ctx, "scheduler stopped", logger.String("reason", stopRequested))
	return nil
}

// StartScheduler resumes automatic refresh after a stop, triggering a run
// immediately. It is a no-op when the scheduler is already running.
func (s *Service) StartScheduler(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return model.ErrNotStarted
	}
	if s.state != model.SchedulerStopped {
		return nil
	}

	s.stopReason = ""
	if s.inFlight.Load() {
		s.setStateLocked(model.SchedulerFetching)
	} else {
		s.setStateLocked(model.SchedulerIdle)
	}
	s.startTicksLocked()
	s.logger.Info(ctx, "scheduler resumed", logger.Duration("interval", s.interval))
	return nil
}

// Run executes one refresh. It is the worker's runner and is never called
// concurrently with itself.
func (s *Service) Run(ctx context.Context, t model.Trigger) error {
	s.mu.Lock()
	if s.state == model.SchedulerStopped {
		s.mu.Unlock()
		metrics.RecordTriggerSkipped("stopped")
		s.logger.Debug(ctx, "dropping trigger, scheduler stopped", logger.String("trigger", string(t.Source)))
		return nil
	}
	s.inFlight.Store(true)
	s.setStateLocked(model.SchedulerFetching)
	s.mu.Unlock()
	defer s.inFlight.Store(false)

	runID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "refresh.run")
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("trigger", string(t.Source)),
	)
	defer span.End()

	s.runs.Add(1)
	start := time.Now()
	res, err := s.pipeline.Execute(ctx, s.reference.Load())
	took := time.Since(start)
	if err != nil {
		s.fail(ctx, runID, err, took)
		return err
	}

	s.reference.Store(model.NewReference(res.Current))
	s.store.Publish(ctx, res.Snapshot)

	s.mu.Lock()
	at := res.Snapshot.TakenAt
	s.lastUpdated = &at
	s.lastErr = ""
	s.lastErrKind = ""
	if s.state != model.SchedulerStopped {
		s.setStateLocked(model.SchedulerIdle)
	}
	s.mu.Unlock()

	if s.history != nil {
		if _, err := s.history.Append(ctx, res.Snapshot); err != nil {
			metrics.RecordHistoryError()
			s.logger.Warn(ctx, "failed to append snapshot history",
				logger.String("run_id", runID),
				logger.Error(err),
			)
		} else {
			metrics.RecordHistoryAppend()
		}
	}

	_ = metrics.RecordRefresh(metrics.OutcomeSuccess, float64(took.Milliseconds()))
	metrics.RecordPublish(res.Snapshot.Len(), at)
	s.logger.Info(ctx, "refresh published",
		logger.String("run_id", runID),
		logger.String("trigger", string(t.Source)),
		logger.Int("entries", res.Snapshot.Len()),
		logger.Int("duplicates", res.Duplicates),
		logger.Duration("took", took),
	)
	return nil
}

// fail records a failed run. Prior published data is left untouched; quota and
// credential failures stop automatic refresh.
func (s *Service) fail(ctx context.Context, runID string, err error, took time.Duration) {
	stage := model.StageExtract
	var f *Failure
	if errors.As(err, &f) {
		stage = f.Stage
	}
	kind := classify.Classify(stage, err)
	s.failures.Add(1)

	s.mu.Lock()
	s.lastErr = classify.Message(kind)
	s.lastErrKind = kind
	switch {
	case kind.Terminal():
		if s.state != model.SchedulerStopped {
			s.stopReason = string(kind)
		}
		s.setStateLocked(model.SchedulerStopped)
		s.haltTicksLocked()
	case s.state != model.SchedulerStopped:
		s.setStateLocked(model.SchedulerIdle)
	}
	s.mu.Unlock()

	_ = metrics.RecordRefresh(string(kind), float64(took.Milliseconds()))
	metrics.RecordErrorByComponent("pipeline", string(kind))
	metrics.RecordErrorLatency("pipeline", string(kind), float64(took.Milliseconds()))

	fields := []logger.Field{
		logger.String("run_id", runID),
		logger.String("stage", string(stage)),
		logger.String("kind", string(kind)),
		logger.Error(err),
	}
	if kind.Terminal() {
		metrics.RecordErrorByType(string(kind), "critical")
		s.logger.Error(ctx, "refresh failed, automatic refresh stopped", fields...)
		return
	}
	metrics.RecordErrorByType(string(kind), "error")
	s.logger.Warn(ctx, "refresh failed", fields...)
}

// trigger enqueues a refresh for source unless one is already running or
// pending.
func (s *Service) trigger(ctx context.Context, source model.TriggerSource) error {
	if s.inFlight.Load() {
		metrics.RecordTriggerSkipped("in_flight")
		return model.ErrRunInProgress
	}

	err := s.queue.Enqueue(ctx, model.Trigger{Source: source, At: s.now()})
	switch {
	case err == nil:
		metrics.RecordTrigger(string(source))
		return nil
	case errors.Is(err, triggerqueue.ErrFull):
		metrics.RecordTriggerSkipped("pending")
		return model.ErrRunInProgress
	default:
		return err
	}
}

// startTicksLocked starts the tick loop. Caller holds mu.
func (s *Service) startTicksLocked() {
	if s.tickCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(s.runCtx)
	done := make(chan struct{})
	s.tickCancel = cancel
	s.tickDone = done
	go s.tickLoop(ctx, done)
}

// haltTicksLocked cancels the tick loop and returns a channel closed once it
// has exited, or nil when no loop was running. Caller holds mu.
func (s *Service) haltTicksLocked() <-chan struct{} {
	if s.tickCancel == nil {
		return nil
	}
	s.tickCancel()
	done := s.tickDone
	s.tickCancel = nil
	s.tickDone = nil
	return done
}

func (s *Service) tickLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	err := s.trigger(ctx, model.TriggerTick)
	switch {
	case err == nil, errors.Is(err, model.ErrRunInProgress):
	case errors.Is(err, context.Canceled), errors.Is(err, triggerqueue.ErrClosed):
	default:
		s.logger.Warn(ctx, "failed to queue scheduled refresh", logger.Error(err))
	}
}
