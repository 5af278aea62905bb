// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/internal/domain/types"
	"github.com/okian/footprint/pkg/logger"
)

// maxBodyBytes bounds a beacon request body.
const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Enqueue pushes a beacon for async processing.
	Enqueue(ctx context.Context, b model.Beacon) error

	// Read operations expose the dashboard aggregates.
	Snapshot(ctx context.Context, days int) (types.Snapshot, error)
	Heatmap(ctx context.Context, filter types.HeatmapFilter) ([]model.HeatmapSample, error)
}

// Server wires HTTP routes for the collector and dashboard.
type Server struct {
	deps Dependencies

	healthHandler *HealthHandler
	stats         StatsProvider

	trustProxy      bool
	respectDNT      bool
	maxHeatmapBatch int

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:            deps,
		healthHandler:   NewHealthHandler(),
		stats:           statsProvider,
		respectDNT:      true,
		maxHeatmapBatch: MaxHeatmapBatch,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", handleDashboard)
	mux.HandleFunc("/stats", MetricsMiddleware(statsHandler(s.stats), "stats"))
	mux.HandleFunc("/collect/pageview", MetricsMiddleware(s.HandlePageView, "collect_pageview"))
	mux.HandleFunc("/collect/event", MetricsMiddleware(s.HandleEvent, "collect_event"))
	mux.HandleFunc("/collect/heatmap", MetricsMiddleware(s.HandleHeatmap, "collect_heatmap"))
	mux.HandleFunc("/analytics/export.csv", MetricsMiddleware(s.HandleExport, "analytics_export"))
	mux.HandleFunc("/analytics", MetricsMiddleware(s.HandleAnalytics, "analytics"))
	mux.HandleFunc("/heatmap", MetricsMiddleware(s.HandleHeatmapData, "heatmap"))

	s.logger.Debug(ctx, "api routes registered")
}

type ackResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeBody reads one JSON document into v, rejecting unknown trailing data.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
