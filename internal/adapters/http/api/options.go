package api

import "github.com/okian/footprint/pkg/logger"

// MaxHeatmapBatch is the default limit on samples per heatmap beacon.
const MaxHeatmapBatch = 500

// Option configures a Server.
type Option func(*Server)

// WithTrustProxy makes the collector read the client ip from X-Forwarded-For.
func WithTrustProxy(trust bool) Option {
	return func(s *Server) {
		s.trustProxy = trust
	}
}

// WithRespectDNT drops beacons sent with "DNT: 1".
func WithRespectDNT(respect bool) Option {
	return func(s *Server) {
		s.respectDNT = respect
	}
}

// WithMaxHeatmapBatch bounds the samples accepted in one heatmap beacon.
func WithMaxHeatmapBatch(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxHeatmapBatch = n
		}
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
