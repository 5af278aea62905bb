package dedupe

import "time"

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of keys to keep in memory.
// If maxSize > 0: bounded mode, expired keys go first, then the oldest.
// If maxSize <= 0: unbounded mode.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithWindow sets how long a key suppresses repeats.
func WithWindow(window time.Duration) Option {
	return func(d *inMemoryDeduper) {
		if window > 0 {
			d.window = window
		}
	}
}
