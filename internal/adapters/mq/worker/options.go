package worker

import (
	"time"

	"github.com/okian/footprint/pkg/logger"
)

// Option applies a configuration option to a Pool.
type Option func(*Pool)

// WithLogger sets a custom logger for the pool and its workers.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetricsInterval sets how often throughput gauges are refreshed.
func WithMetricsInterval(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.metricsInterval = d
		}
	}
}
