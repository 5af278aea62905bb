package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/footprint/internal/adapters/mq/queue"
	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/pkg/logger"
	"github.com/okian/footprint/pkg/metrics"
)

// pageViewRequest is the body of POST /collect/pageview.
type pageViewRequest struct {
	Path      string           `json:"path"`
	Referrer  string           `json:"referrer"`
	UserAgent string           `json:"userAgent"`
	Screen    model.ScreenSize `json:"screen"`
	SessionID string           `json:"sessionId"`
}

// eventRequest is the body of POST /collect/event.
type eventRequest struct {
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	Path      string         `json:"path"`
	SessionID string         `json:"sessionId"`
}

// sampleRequest is one element of POST /collect/heatmap.
type sampleRequest struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Type  string   `json:"type"`
	Value *float64 `json:"value"`
	Path  string   `json:"path"`
}

type heatmapRequest struct {
	Samples []sampleRequest `json:"samples"`
}

// HandlePageView handles POST /collect/pageview.
func (s *Server) HandlePageView(w http.ResponseWriter, r *http.Request) {
	const op = "api.collect_pageview"
	if !s.acceptBeacon(w, r) {
		return
	}
	var req pageViewRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing path")))
		return
	}

	ua := req.UserAgent
	if ua == "" {
		ua = r.UserAgent()
	}
	referrer := req.Referrer
	if referrer == "" {
		referrer = r.Referer()
	}
	client := model.Client{
		UserAgent: ua,
		Referrer:  referrer,
		Screen:    req.Screen,
		IP:        s.clientIP(r),
		SessionID: req.SessionID,
	}
	s.enqueue(w, r, op, model.NewPageViewBeacon(uuid.NewString(), req.Path, client))
}

// HandleEvent handles POST /collect/event.
func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.collect_event"
	if !s.acceptBeacon(w, r) {
		return
	}
	var req eventRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing path")))
		return
	}
	ev := model.Event{
		Name:      model.EventKind(req.Name),
		Data:      req.Data,
		SessionID: req.SessionID,
		Path:      req.Path,
	}
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}
	if err := ev.Validate(); err != nil {
		metrics.RecordEventRejected()
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	s.enqueue(w, r, op, model.NewEventBeacon(uuid.NewString(), req.Path, ev))
}

// HandleHeatmap handles POST /collect/heatmap.
func (s *Server) HandleHeatmap(w http.ResponseWriter, r *http.Request) {
	const op = "api.collect_heatmap"
	if !s.acceptBeacon(w, r) {
		return
	}
	var req heatmapRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	switch {
	case len(req.Samples) == 0:
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("no samples")))
		return
	case len(req.Samples) > s.maxHeatmapBatch:
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("at most %d samples per request", s.maxHeatmapBatch)))
		return
	}

	samples := make([]model.HeatmapSample, len(req.Samples))
	for i, in := range req.Samples {
		sample := model.HeatmapSample{X: in.X, Y: in.Y, Path: in.Path, Type: model.HeatmapType(in.Type)}
		if in.Value != nil {
			sample.Value = *in.Value
		} else {
			sample.Value = sample.Type.DefaultValue()
		}
		if strings.TrimSpace(sample.Path) == "" {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("sample %d: missing path", i)))
			return
		}
		if err := sample.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request",
				WrapKind(op, ErrBadRequest, fmt.Errorf("sample %d: %w", i, err)))
			return
		}
		samples[i] = sample
	}
	s.enqueue(w, r, op, model.NewHeatmapBeacon(uuid.NewString(), samples))
}

// acceptBeacon enforces the method and the DNT preference. It writes the
// response itself when the beacon must not be processed.
func (s *Server) acceptBeacon(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return false
	}
	if s.respectDNT && r.Header.Get("DNT") == "1" {
		metrics.RecordBeaconIgnored("dnt")
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	return true
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, op string, b model.Beacon) { //nolint:gocritic // hugeParam: Beacon is queued by value
	b.ReceivedAt = time.Now()
	if err := s.deps.Enqueue(r.Context(), b); err != nil {
		switch {
		case errors.Is(err, queue.ErrFull):
			writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		default:
			s.logger.Warn(r.Context(), "beacon not queued", logger.String("op", op), logger.Error(err))
			writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		}
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", ID: b.ID})
}

// clientIP returns the address of the browser that sent r.
func (s *Server) clientIP(r *http.Request) string {
	if s.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
