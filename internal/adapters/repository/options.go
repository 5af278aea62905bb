package repository

import "time"

// options is shared by every driver; each reads the fields it needs.
type options struct {
	path  string
	dsn   string
	quota int
	table string
	now   func() time.Time
}

// Option applies a configuration option to a Store.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		table: "footprint_kv",
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithPath sets the directory (file) or database file (sqlite).
func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// WithDSN sets the postgres connection string.
func WithDSN(dsn string) Option {
	return func(o *options) {
		o.dsn = dsn
	}
}

// WithQuota caps the total bytes held by the memory driver.
func WithQuota(bytes int) Option {
	return func(o *options) {
		if bytes > 0 {
			o.quota = bytes
		}
	}
}

// WithTable sets the table used by the SQL drivers.
func WithTable(name string) Option {
	return func(o *options) {
		if validKey.MatchString(name) {
			o.table = name
		}
	}
}

// WithClock sets the time source used for updated_at columns.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
