// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers file and env on top.
// - Durations accept Go duration strings ("30m", "1500ms").
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"runtime"
	"time"
)

// Storage drivers understood by the repository adapter.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorageDriver picks the key/value substrate: memory, file, sqlite, postgres.
	StorageDriver string `koanf:"storage_driver"`

	// StoragePath is the directory (file) or database file (sqlite).
	StoragePath string `koanf:"storage_path"`

	// StorageDSN is the connection string for the postgres driver.
	StorageDSN string `koanf:"storage_dsn"`

	// StorageQuotaBytes caps the memory driver; 0 disables the quota.
	StorageQuotaBytes int `koanf:"storage_quota_bytes"`

	// DedupeWindow is how long a page view from one ip suppresses repeats of the same path.
	DedupeWindow time.Duration `koanf:"dedupe_window"`

	// VisitorWindow bounds unique/returning visitors, visitor details and geolocation.
	VisitorWindow time.Duration `koanf:"visitor_window"`

	// DedupeSize bounds the ip+path recency index; 0 means unbounded.
	DedupeSize int `koanf:"dedupe_size"`

	// Collection caps; 0 means unbounded. Oldest records are evicted first.
	MaxPageViews      int `koanf:"max_page_views"`
	MaxEvents         int `koanf:"max_events"`
	MaxHeatmapSamples int `koanf:"max_heatmap_samples"`

	// GeoEnabled toggles the best-effort geolocation lookup.
	GeoEnabled bool `koanf:"geo_enabled"`

	// GeoBaseURL is the ipinfo-compatible lookup endpoint.
	GeoBaseURL string `koanf:"geo_base_url"`

	// GeoTimeoutMS bounds a single lookup; 0 means no timeout.
	GeoTimeoutMS int `koanf:"geo_timeout_ms"`

	// EventQueueSize bounds the in-memory beacon queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of beacon workers.
	WorkerCount int `koanf:"worker_count"`

	// Timezone names the location used for calendar-day bucketing.
	Timezone string `koanf:"timezone"`

	// AllowedOrigins lists CORS origins allowed to post beacons.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// TrustProxy makes the collector read the client ip from X-Forwarded-For.
	TrustProxy bool `koanf:"trust_proxy"`

	// RespectDNT drops beacons carrying "DNT: 1".
	RespectDNT bool `koanf:"respect_dnt"`

	// OTelEndpoint enables OTLP/HTTP tracing when set.
	OTelEndpoint string `koanf:"otel_endpoint"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StorageDriver:     DriverFile,
		StoragePath:       "data",
		DedupeWindow:      30 * time.Minute,
		VisitorWindow:     30 * time.Minute,
		DedupeSize:        100_000,
		MaxPageViews:      100_000,
		MaxEvents:         100_000,
		MaxHeatmapSamples: 250_000,
		GeoEnabled:        true,
		GeoBaseURL:        "https://ipinfo.io",
		GeoTimeoutMS:      3000,
		EventQueueSize:    10_000,
		WorkerCount:       runtime.NumCPU(),
		Timezone:          "Local",
		AllowedOrigins:    []string{"*"},
		TrustProxy:        false,
		RespectDNT:        true,
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// GeoTimeout returns GeoTimeoutMS as a duration.
func (c *Config) GeoTimeout() time.Duration {
	return time.Duration(c.GeoTimeoutMS) * time.Millisecond
}
