package trafficsim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/footprint/pkg/logger"
)

// ErrVerification is returned when the dashboard misses simulated visits.
var ErrVerification = errors.New("dashboard does not reflect simulated traffic")

const (
	maxRetries   = 3
	retryBackoff = 200 * time.Millisecond
)

type analytics struct {
	TotalVisits    int `json:"totalVisits"`
	UniqueVisitors int `json:"uniqueVisitors"`
}

// Run sends the simulated traffic and verifies the dashboard counts it.
// The collector must run with trust_proxy so visitors get distinct ips.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Report, error) {
	if log == nil {
		log = logger.Nop()
	}
	start := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting traffic simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("visitors", cfg.Visitors),
		logger.Int("workers", cfg.Workers),
	)

	if err := c.get(ctx, "/healthz", nil); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(start.UnixNano())
	}
	visits := NewGenerator(seed).Visits(cfg.Visitors, cfg.PagesPerVisitor)
	stats := &Stats{ExpectedVisits: ExpectedVisits(visits)}

	var before analytics
	if err := c.get(ctx, "/analytics?range=7d", &before); err != nil {
		return nil, fmt.Errorf("read dashboard: %w", err)
	}

	send(ctx, c, cfg, visits, stats, log)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("simulation interrupted: %w", err)
	}

	log.Info(ctx, "waiting for beacons to be processed", logger.Duration("settle", cfg.Settle))
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(cfg.Settle):
	}

	var after analytics
	if err := c.get(ctx, "/analytics?range=7d", &after); err != nil {
		return nil, fmt.Errorf("read dashboard: %w", err)
	}

	report := &Report{
		PageViewsSent:  stats.PageViewsSent.Load(),
		EventsSent:     stats.EventsSent.Load(),
		SamplesSent:    stats.SamplesSent.Load(),
		Accepted:       stats.Accepted.Load(),
		Backpressure:   stats.Backpressure.Load(),
		Failed:         stats.Failed.Load(),
		ExpectedVisits: stats.ExpectedVisits,
		ObservedVisits: after.TotalVisits - before.TotalVisits,
		Duration:       time.Since(start),
	}
	log.Info(ctx, "simulation finished",
		logger.Int64("pageViewsSent", report.PageViewsSent),
		logger.Int64("eventsSent", report.EventsSent),
		logger.Int64("samplesSent", report.SamplesSent),
		logger.Int64("failed", report.Failed),
		logger.Int("expectedVisits", report.ExpectedVisits),
		logger.Int("observedVisits", report.ObservedVisits),
		logger.Duration("duration", report.Duration),
	)

	// A shortfall only counts when every beacon was accepted.
	if report.Failed == 0 && report.ObservedVisits < report.ExpectedVisits {
		return report, fmt.Errorf("%w: expected %d new visits, saw %d",
			ErrVerification, report.ExpectedVisits, report.ObservedVisits)
	}
	return report, nil
}

// send fans the visits out over cfg.Workers senders.
func send(ctx context.Context, c *client, cfg *Config, visits []Visit, stats *Stats, log logger.Logger) {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan *Visit, workers*2)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				sendVisit(ctx, c, v, stats, cfg.Verbose, log)
			}
		}()
	}

loop:
	for i := range visits {
		select {
		case <-ctx.Done():
			break loop
		case jobs <- &visits[i]:
		}
	}
	close(jobs)
	wg.Wait()
}

func sendVisit(ctx context.Context, c *client, v *Visit, stats *Stats, verbose bool, log logger.Logger) {
	for _, p := range v.Pages {
		stats.PageViewsSent.Add(1)
		deliver(ctx, c, v, "/collect/pageview", map[string]any{
			"path":      p,
			"referrer":  v.Referrer,
			"userAgent": v.UserAgent,
			"screen":    v.Screen,
			"sessionId": v.SessionID,
		}, stats, verbose, log)
	}
	for i := range v.Events {
		stats.EventsSent.Add(1)
		deliver(ctx, c, v, "/collect/event", v.Events[i], stats, verbose, log)
	}
	if len(v.Samples) > 0 {
		stats.SamplesSent.Add(int64(len(v.Samples)))
		deliver(ctx, c, v, "/collect/heatmap", map[string]any{"samples": v.Samples}, stats, verbose, log)
	}
}

// deliver posts one beacon, retrying on backpressure.
func deliver(ctx context.Context, c *client, v *Visit, path string, body any, stats *Stats, verbose bool, log logger.Logger) {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = c.post(ctx, v, path, body)
		if !errors.Is(err, ErrBackpressure) {
			break
		}
		stats.Backpressure.Add(1)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		}
	}
	if err != nil {
		stats.Failed.Add(1)
		log.Warn(ctx, "beacon failed", logger.String("path", path), logger.String("ip", v.IP), logger.Error(err))
		return
	}
	stats.Accepted.Add(1)
	if verbose {
		log.Debug(ctx, "beacon accepted", logger.String("path", path), logger.String("ip", v.IP))
	}
}
