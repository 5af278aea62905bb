// Package worker drains the beacon queue into the telemetry store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/pkg/logger"
	"github.com/okian/footprint/pkg/metrics"
)

const defaultMetricsInterval = 5 * time.Second

// ErrUnknownBeacon is returned for a beacon with no known kind.
var ErrUnknownBeacon = errors.New("unknown beacon kind")

// Recorder stores decoded telemetry.
type Recorder interface {
	RecordPageView(ctx context.Context, path string, client model.Client) (bool, error)
	RecordEvent(ctx context.Context, path string, ev model.Event) error
	RecordHeatmapSamples(ctx context.Context, samples []model.HeatmapSample) (int, error)
}

// Queue defines how workers receive beacons.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Beacon
	Close() error
}

// worker processes beacons from one dequeue channel.
type worker struct {
	name     string
	queue    Queue
	recorder Recorder
	logger   logger.Logger
	stop     <-chan struct{}
	done     chan struct{}
	counter  *atomic.Int64
}

// run processes beacons until the queue is drained, ctx ends or stop closes.
func (w *worker) run(ctx context.Context) {
	defer close(w.done)

	beacons := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case b, ok := <-beacons:
			if !ok {
				return
			}
			if err := w.process(ctx, b); err != nil {
				w.logger.Warn(ctx, "beacon rejected",
					logger.String("beacon", b.ID),
					logger.String("kind", b.Kind.String()),
					logger.Error(err),
				)
			}
			w.counter.Add(1)
		}
	}
}

func (w *worker) process(ctx context.Context, b model.Beacon) error { //nolint:gocritic // hugeParam: beacons travel by value through the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	var err error
	switch b.Kind {
	case model.BeaconPageView:
		_, err = w.recorder.RecordPageView(ctx, b.Path, b.Client)
	case model.BeaconEvent:
		err = w.recorder.RecordEvent(ctx, b.Path, b.Event)
	case model.BeaconHeatmap:
		_, err = w.recorder.RecordHeatmapSamples(ctx, b.Samples)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownBeacon, b.Kind)
	}
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", b.Kind.String())
		return fmt.Errorf("process %s beacon: %w", b.Kind, err)
	}
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*worker
	queue    Queue
	recorder Recorder

	stop     chan struct{}
	stopOnce sync.Once

	processed       atomic.Int64
	metricsInterval time.Duration

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Values below one use NumCPU.
func NewPool(workerCount int, queue Queue, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		queue:           queue,
		recorder:        recorder,
		stop:            make(chan struct{}),
		metricsInterval: defaultMetricsInterval,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers = make([]*worker, workerCount)
	for i := range p.workers {
		name := "worker-" + strconv.Itoa(i)
		p.workers[i] = &worker{
			name:     name,
			queue:    queue,
			recorder: recorder,
			logger:   p.logger.Named(name),
			stop:     p.stop,
			done:     make(chan struct{}),
			counter:  &p.processed,
		}
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Start launches every worker and the throughput reporter.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.run(ctx)
	}
	metrics.UpdateWorkerActiveCount(len(p.workers))
	go p.reportThroughput(ctx)
}

func (p *Pool) reportThroughput(ctx context.Context) {
	ticker := time.NewTicker(p.metricsInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case now := <-ticker.C:
			n := p.processed.Swap(0)
			if elapsed := now.Sub(last).Seconds(); elapsed > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(n) / elapsed)
			}
			last = now
		}
	}
}

// Processed returns how many beacons were handled since the last report.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Shutdown closes the queue and waits for the workers to drain it.
// When ctx ends first the workers are told to stop and the remaining
// beacons are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
		if timedOut {
			break
		}
	}
	p.stopOnce.Do(func() { close(p.stop) })
	metrics.UpdateWorkerActiveCount(0)

	if timedOut {
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
	return nil
}
