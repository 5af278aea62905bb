package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/internal/domain/types"
)

// Ranges accepted by the analytics endpoints, in days.
var ranges = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
}

const defaultRange = "7d"

// parseRange maps the range query parameter to a day count.
func parseRange(r *http.Request) (string, int, error) {
	name := strings.TrimSpace(r.URL.Query().Get("range"))
	if name == "" {
		name = defaultRange
	}
	days, ok := ranges[name]
	if !ok {
		return "", 0, fmt.Errorf("invalid range %q; use 7d, 30d or 90d", name)
	}
	return name, days, nil
}

// HandleAnalytics handles GET /analytics.
func (s *Server) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "api.analytics"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	_, days, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	snap, err := s.deps.Snapshot(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleExport handles GET /analytics/export.csv.
func (s *Server) HandleExport(w http.ResponseWriter, r *http.Request) {
	const op = "api.analytics_export"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	name, days, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	snap, err := s.deps.Snapshot(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}

	filename := "analytics-export-" + time.UnixMilli(snap.GeneratedAt).UTC().Format(time.DateOnly) + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.WriteAll(exportRows(&snap, name))
}

// exportRows renders the headline metrics as CSV records.
func exportRows(snap *types.Snapshot, rangeName string) [][]string {
	return [][]string{
		{"Metric", "Value", "Date Range"},
		{"Total Visits", strconv.Itoa(snap.TotalVisits), rangeName},
		{"Unique Visitors", strconv.Itoa(snap.UniqueVisitors), rangeName},
		{"Returning Visitors", strconv.Itoa(snap.ReturningVisitors), rangeName},
		{"Average Time on Site", snap.AverageTimeOnSite, rangeName},
		{"Bounce Rate", fmt.Sprintf("%.2f%%", float64(snap.BounceRate)), rangeName},
		{"Page Views", strconv.Itoa(snap.PageViews), rangeName},
	}
}

// HandleHeatmapData handles GET /heatmap.
func (s *Server) HandleHeatmapData(w http.ResponseWriter, r *http.Request) {
	const op = "api.heatmap"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	filter := types.HeatmapFilter{
		Path: q.Get("path"),
		Type: model.HeatmapType(q.Get("type")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, errors.New("type must be click, hover or scroll")))
		return
	}
	samples, err := s.deps.Heatmap(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"samples": samples,
		"count":   len(samples),
	})
}
