package tracker

import (
	"time"

	"github.com/okian/footprint/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithClock sets the time source. Tests use it to move time.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLocator sets the geolocation lookup used for page views.
func WithLocator(l Locator) Option {
	return func(t *Tracker) {
		if l != nil {
			t.locator = l
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithDedupeWindow sets how long an ip+path suppresses repeat page views.
func WithDedupeWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.dedupeWindow = d
		}
	}
}

// WithDedupeSize bounds the ip+path index; 0 means unbounded.
func WithDedupeSize(n int) Option {
	return func(t *Tracker) {
		if n >= 0 {
			t.dedupeSize = n
		}
	}
}

// WithVisitorWindow sets the window for visitor and geolocation aggregates.
func WithVisitorWindow(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.visitorWindow = d
		}
	}
}

// WithCaps bounds the three collections; 0 means unbounded.
// When full the oldest records are evicted first.
func WithCaps(pageViews, events, samples int) Option {
	return func(t *Tracker) {
		t.maxPageViews = max(pageViews, 0)
		t.maxEvents = max(events, 0)
		t.maxSamples = max(samples, 0)
	}
}

// WithLocation sets the time zone used for calendar days.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.location = loc
		}
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) Option {
	return func(t *Tracker) {
		if id != "" {
			t.sessionID = id
		}
	}
}
