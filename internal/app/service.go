// Package service wires the telemetry store, the beacon queue and the
// worker pool into the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	eventqueue "github.com/okian/footprint/internal/adapters/mq/queue"
	workerpool "github.com/okian/footprint/internal/adapters/mq/worker"
	repository "github.com/okian/footprint/internal/adapters/repository"
	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/internal/domain/tracker"
	"github.com/okian/footprint/internal/domain/types"
	"github.com/okian/footprint/pkg/logger"
	"github.com/okian/footprint/pkg/metrics"
)

// Service implements the API dependencies for the collector.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	locator    tracker.Locator
	tracker    *tracker.Tracker
	eventQueue *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	workerCount int
	queueSize   int
	trackerOpts []tracker.Option
	now         func() time.Time

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads persisted telemetry and starts the workers. The workers
// outlive ctx; Stop ends them.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting footprint service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Warn(ctx, "no store configured; telemetry will not survive a restart")
	}

	opts := []tracker.Option{tracker.WithLogger(s.logger.Named("tracker"))}
	if s.locator != nil {
		opts = append(opts, tracker.WithLocator(s.locator))
	}
	opts = append(opts, s.trackerOpts...)
	t, err := tracker.New(ctx, s.store, opts...)
	if err != nil {
		return fmt.Errorf("start tracker: %w", err)
	}
	s.tracker = t

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.tracker,
		workerpool.WithLogger(s.logger.Named("worker")),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.workerPool.Start(runCtx)

	s.started = true
	s.startedAt = s.now()
	counts := s.tracker.Counts(ctx)
	s.logger.Info(ctx, "footprint service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("session", s.tracker.SessionID()),
		logger.Int("pageViews", counts.PageViews),
		logger.Int("events", counts.Events),
		logger.Int("heatmapSamples", counts.HeatmapSamples),
	)
	return nil
}

// Stop drains queued beacons, then flushes the store. Beacons still queued
// when ctx ends are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping footprint service...")

	var errs []error
	if err := s.workerPool.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain queue: %w", err))
	}
	s.cancel()
	if err := s.tracker.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close tracker: %w", err))
	}

	s.started = false
	err := errors.Join(errs...)
	if err != nil {
		s.logger.Error(ctx, "footprint service stopped with errors", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "footprint service stopped")
	return nil
}

// Enqueue submits a beacon for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, b model.Beacon) error { //nolint:gocritic // hugeParam: Beacon is queued by value
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return ErrNotStarted
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.ReceivedAt.IsZero() {
		b.ReceivedAt = s.now()
	}
	s.logger.Debug(ctx, "enqueueing beacon",
		logger.String("id", b.ID),
		logger.String("kind", b.Kind.String()),
		logger.String("path", b.Path),
	)
	if err := s.eventQueue.Enqueue(ctx, b); err != nil {
		return fmt.Errorf("enqueue %s beacon: %w", b.Kind, err)
	}
	return nil
}

// Snapshot returns the dashboard aggregates over the last days.
func (s *Service) Snapshot(ctx context.Context, days int) (types.Snapshot, error) {
	t, err := s.current()
	if err != nil {
		return types.Snapshot{}, err
	}
	return t.Snapshot(ctx, tracker.SnapshotOptions{Days: days})
}

// Heatmap returns the stored samples matching filter.
func (s *Service) Heatmap(ctx context.Context, filter types.HeatmapFilter) ([]model.HeatmapSample, error) {
	t, err := s.current()
	if err != nil {
		return nil, err
	}
	return t.Heatmap(ctx, filter)
}

func (s *Service) current() (*tracker.Tracker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.tracker, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	counts := s.tracker.Counts(ctx)
	queueLen := s.eventQueue.Len()

	stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
	stats["queueLength"] = queueLen
	stats["sessionId"] = s.tracker.SessionID()
	stats["pageViews"] = counts.PageViews
	stats["events"] = counts.Events
	stats["heatmapSamples"] = counts.HeatmapSamples

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateStoredCounts(counts.PageViews, counts.Events, counts.HeatmapSamples)
	return stats
}
