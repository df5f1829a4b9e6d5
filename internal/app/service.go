// Package service provides the core refresh service behind the HTTP API: it
// owns the pipeline, the scheduler, the previous-snapshot reference and the
// published snapshot.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	triggerqueue "github.com/okian/standings/internal/adapters/mq/queue"
	refreshworker "github.com/okian/standings/internal/adapters/mq/worker"
	"github.com/okian/standings/internal/adapters/repository"
	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
	"github.com/okian/standings/pkg/tracing"
)

const (
	defaultInterval       = 10 * time.Second
	workerShutdownTimeout = 5 * time.Second
)

// HistoryStore persists published snapshots.
type HistoryStore interface {
	Append(ctx context.Context, snap model.Snapshot) (int64, error)
	Recent(ctx context.Context, limit int) ([]model.HistorySummary, error)
	Snapshot(ctx context.Context, id int64) (model.Snapshot, error)
}

// Service implements the API dependencies for the standings dashboard.
type Service struct {
	mu sync.Mutex

	pipeline *Pipeline
	store    repository.Store
	history  HistoryStore

	// reference is written only by the worker after a successful run.
	reference atomic.Pointer[model.Reference]
	inFlight  atomic.Bool

	queue  *triggerqueue.InMemoryQueue
	worker *refreshworker.InMemoryWorker

	interval  time.Duration
	queueSize int

	// lifecycle, guarded by mu
	started     bool
	runCtx      context.Context
	runCancel   context.CancelFunc
	tickCancel  context.CancelFunc
	tickDone    chan struct{}
	state       model.SchedulerState
	stopReason  string
	lastErr     string
	lastErrKind model.FailureKind
	lastUpdated *time.Time

	runs     atomic.Int64
	failures atomic.Int64

	now    func() time.Time
	tracer trace.Tracer
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithInterval sets the automatic refresh period.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTriggerQueueSize sets how many refresh triggers may wait for the worker.
func WithTriggerQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithStore replaces the published snapshot store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithHistory enables snapshot history.
func WithHistory(h HistoryStore) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service around the given fetcher and extractor.
func New(fetcher Fetcher, extractor Extractor, opts ...Option) *Service {
	s := &Service{
		interval:  defaultInterval,
		queueSize: 1,
		now:       time.Now,
		tracer:    tracing.Tracer("standings/service"),
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewSnapshotStore(repository.WithLogger(s.logger.Named("store")))
	}
	s.pipeline = NewPipeline(fetcher, extractor)
	s.pipeline.now = s.now
	return s
}

// Start creates the trigger queue and worker and begins automatic refresh.
// The first refresh is triggered immediately.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting standings service...",
		logger.Duration("interval", s.interval),
		logger.Int("trigger_queue_size", s.queueSize),
		logger.Bool("history", s.history != nil),
	)

	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.queue = triggerqueue.NewInMemoryQueue(triggerqueue.WithCapacity(s.queueSize))
	s.worker = refreshworker.NewInMemoryWorker(s.queue, s,
		refreshworker.WithName("refresh"),
		refreshworker.WithLogger(s.logger),
	)
	go s.worker.Run(s.runCtx)

	s.started = true
	s.setStateLocked(model.SchedulerIdle)
	s.startTicksLocked()

	s.logger.Info(ctx, "standings service started")
	return nil
}

// Stop halts ticks, drains the worker and releases resources. An in-flight
// run gets a bounded grace period to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping standings service...")

	done := s.haltTicksLocked()
	_ = s.queue.Close()
	s.started = false
	s.mu.Unlock()

	if done != nil {
		<-done
	}

	sctx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(sctx); err != nil {
		s.logger.Warn(ctx, "worker did not stop in time", logger.Error(err))
	}
	s.runCancel()

	s.logger.Info(ctx, "standings service stopped")
}

// State returns the presenter view: published snapshot, in-progress flag,
// last update time, current error and scheduler state.
func (s *Service) State(ctx context.Context) model.State {
	snap, _ := s.store.Current(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.State{
		Snapshot:   snap,
		InProgress: s.inFlight.Load(),
		Error:      s.lastErr,
		ErrorKind:  s.lastErrKind,
		Scheduler:  s.state,
		StopReason: s.stopReason,
	}
	if s.lastUpdated != nil {
		t := *s.lastUpdated
		st.LastUpdated = &t
	}
	return st
}

// TopN returns the top N entries of the published snapshot.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns the published entry for name.
func (s *Service) Rank(ctx context.Context, name string) (types.Entry, error) {
	return s.store.Rank(ctx, name)
}

// History lists recent stored snapshots, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]model.HistorySummary, error) {
	if s.history == nil {
		return nil, model.ErrHistoryDisabled
	}
	return s.history.Recent(ctx, limit)
}

// HistorySnapshot loads one stored snapshot.
func (s *Service) HistorySnapshot(ctx context.Context, id int64) (model.Snapshot, error) {
	if s.history == nil {
		return model.Snapshot{}, model.ErrHistoryDisabled
	}
	return s.history.Snapshot(ctx, id)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	ctx := context.Background()
	entries := s.store.Count(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"state":              s.state.String(),
		"inProgress":         s.inFlight.Load(),
		"entries":            entries,
		"referenceSize":      s.reference.Load().Len(),
		"runsTotal":          s.runs.Load(),
		"failuresTotal":      s.failures.Load(),
		"refreshIntervalMs":  s.interval.Milliseconds(),
		"historyEnabled":     s.history != nil,
		"lastError":          s.lastErr,
		"triggerQueueSize":   s.queueSize,
		"triggerQueueLength": 0,
	}
	if s.lastUpdated != nil {
		stats["lastUpdated"] = s.lastUpdated.UTC().Format(time.RFC3339)
	}
	if s.stopReason != "" {
		stats["stopReason"] = s.stopReason
	}
	if s.started {
		stats["triggerQueueLength"] = s.queue.Len()
	}
	return stats
}

// setStateLocked records a scheduler state change. Caller holds mu.
func (s *Service) setStateLocked(st model.SchedulerState) {
	s.state = st
	metrics.UpdateSchedulerState(int(st))
}
