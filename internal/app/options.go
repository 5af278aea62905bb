package service

import (
	"time"

	repository "github.com/okian/footprint/internal/adapters/repository"
	"github.com/okian/footprint/internal/domain/tracker"
	"github.com/okian/footprint/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of beacons waiting for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithStore sets the substrate telemetry is persisted to. The caller
// keeps ownership and closes it after Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLocator sets the geolocation provider used for page views.
func WithLocator(l tracker.Locator) Option {
	return func(s *Service) {
		if l != nil {
			s.locator = l
		}
	}
}

// WithTrackerOptions passes options through to the telemetry store.
func WithTrackerOptions(opts ...tracker.Option) Option {
	return func(s *Service) {
		s.trackerOpts = append(s.trackerOpts, opts...)
	}
}

// WithClock overrides the time source used for beacon receive times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
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
