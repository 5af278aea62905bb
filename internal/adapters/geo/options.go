package geo

import (
	"net/http"
	"time"

	"github.com/okian/footprint/pkg/logger"
)

// Option applies a configuration option to the IPInfo locator.
type Option func(*IPInfo)

// WithBaseURL points the locator at another ipinfo-compatible endpoint.
func WithBaseURL(base string) Option {
	return func(l *IPInfo) {
		if base != "" {
			l.baseURL = base
		}
	}
}

// WithToken sends a bearer token with each request.
func WithToken(token string) Option {
	return func(l *IPInfo) {
		l.token = token
	}
}

// WithTimeout bounds a single lookup. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *IPInfo) {
		if d >= 0 {
			l.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *IPInfo) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLogger sets a custom logger for the locator.
func WithLogger(lg logger.Logger) Option {
	return func(l *IPInfo) {
		if lg != nil {
			l.logger = lg
		}
	}
}
