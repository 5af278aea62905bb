// Package trafficsim drives a running collector with synthetic portfolio
// visitors and checks the dashboard reflects them.
package trafficsim

import (
	"sync/atomic"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL         string        // Base URL of the collector
	Visitors        int           // Number of simulated visitors
	PagesPerVisitor int           // Upper bound of page views per visitor
	Workers         int           // Number of concurrent senders
	Timeout         time.Duration // HTTP request timeout
	Settle          time.Duration // Wait before reading the dashboard
	Seed            uint64        // Seed for the visit generator; 0 picks one
	Verbose         bool          // Log every beacon
}

// Stats holds counters for a run. Safe for concurrent use.
type Stats struct {
	PageViewsSent  atomic.Int64
	EventsSent     atomic.Int64
	SamplesSent    atomic.Int64
	Accepted       atomic.Int64
	Backpressure   atomic.Int64
	Failed         atomic.Int64
	ExpectedVisits int
}

// Report summarizes a finished run.
type Report struct {
	PageViewsSent  int64
	EventsSent     int64
	SamplesSent    int64
	Accepted       int64
	Backpressure   int64
	Failed         int64
	ExpectedVisits int
	ObservedVisits int
	Duration       time.Duration
}
