// Package tracker is the telemetry store: it ingests page views, events and
// heatmap samples, persists them through a key/value Storage and computes
// dashboard snapshots on demand.
//
// Invariants:
//   - A stored page view is never modified.
//   - A page view with an ip is dropped when the same ip+path was stored
//     less than one dedupe window earlier. Views without an ip are kept.
//   - Every mutation writes the changed collections before returning.
//     Write failures are logged and counted; memory stays authoritative.
//   - Malformed persisted data resets all three collections to empty.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/footprint/internal/domain/classify"
	"github.com/okian/footprint/internal/domain/dedupe"
	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/internal/domain/stats"
	"github.com/okian/footprint/internal/domain/types"
	"github.com/okian/footprint/pkg/logger"
	"github.com/okian/footprint/pkg/metrics"
	"github.com/okian/footprint/pkg/tracing"
)

// Storage keys owned by the tracker.
const (
	KeyPageViews = "analytics_pageViews"
	KeyEvents    = "analytics_events"
	KeyHeatmap   = "analytics_heatmapData"
)

// Collection names used in logs and metrics.
const (
	collectionPageViews = "page_views"
	collectionEvents    = "events"
	collectionHeatmap   = "heatmap_samples"
)

const maxPathLength = 2048

// Storage is the key/value substrate the tracker persists to.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Locator resolves an ip to a location.
type Locator interface {
	Lookup(ctx context.Context, ip string) (model.Location, error)
}

// noLocator is used when no Locator is configured.
type noLocator struct{}

func (noLocator) Lookup(context.Context, string) (model.Location, error) {
	return model.Location{}, model.ErrNoLocation
}

// SnapshotOptions tunes a snapshot.
type SnapshotOptions struct {
	// Days is the number of calendar days in DailyVisits; 0 means 7.
	Days int
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu sync.Mutex

	storage Storage
	locator Locator
	deduper dedupe.Deduper
	now     func() time.Time
	logger  logger.Logger

	sessionID     string
	dedupeWindow  time.Duration
	dedupeSize    int
	visitorWindow time.Duration
	maxPageViews  int
	maxEvents     int
	maxSamples    int
	location      *time.Location

	pageViews []model.PageView
	events    []model.Event
	heatmap   []model.HeatmapSample

	// dirty marks keys whose last write has not succeeded yet.
	dirty map[string]bool
	// unreadable marks keys whose load failed; they are never written so
	// the stored history survives.
	unreadable map[string]bool
	closed     bool
}

// New builds a tracker and loads any previously persisted collections.
// Malformed persisted data never fails construction.
func New(ctx context.Context, storage Storage, opts ...Option) (*Tracker, error) {
	if storage == nil {
		return nil, ErrNoStorage
	}
	t := &Tracker{
		storage:       storage,
		locator:       noLocator{},
		now:           time.Now,
		logger:        logger.Nop(),
		sessionID:     uuid.NewString(),
		dedupeWindow:  dedupe.DefaultWindow,
		visitorWindow: stats.DefaultVisitorWindow,
		location:      time.Local,
		pageViews:     []model.PageView{},
		events:        []model.Event{},
		heatmap:       []model.HeatmapSample{},
		dirty:         make(map[string]bool),
		unreadable:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithWindow(t.dedupeWindow),
		dedupe.WithMaxSize(t.dedupeSize),
	)

	t.load(ctx)
	t.logger.Info(ctx, "tracker ready",
		logger.String("session", t.sessionID),
		logger.Int("pageViews", len(t.pageViews)),
		logger.Int("events", len(t.events)),
		logger.Int("heatmapSamples", len(t.heatmap)),
	)
	return t, nil
}

// SessionID returns the id stamped on records that carry none.
func (t *Tracker) SessionID() string {
	return t.sessionID
}

// load reads the three keys. Any malformed value resets everything. A key
// that cannot be read starts empty and is left untouched in storage.
func (t *Tracker) load(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		pageViews []model.PageView
		events    []model.Event
		heatmap   []model.HeatmapSample
	)
	targets := []struct {
		key string
		dst any
	}{
		{KeyPageViews, &pageViews},
		{KeyEvents, &events},
		{KeyHeatmap, &heatmap},
	}
	for _, target := range targets {
		raw, ok, err := t.storage.Get(ctx, target.key)
		if err != nil {
			t.logger.Error(ctx, "failed to read persisted telemetry, key will not be written",
				logger.String("key", target.key), logger.Error(err))
			metrics.RecordErrorByComponent("tracker", "load_read")
			t.unreadable[target.key] = true
			continue
		}
		if !ok {
			continue
		}
		if err := json.Unmarshal([]byte(raw), target.dst); err != nil {
			t.resetLocked(ctx, target.key, err)
			return
		}
	}

	t.pageViews = nonNil(pageViews)
	t.events = nonNil(events)
	t.heatmap = nonNil(heatmap)
	t.trimLocked()

	for i := range t.pageViews {
		if ip := t.pageViews[i].IP; ip != "" {
			t.deduper.Record(ctx, dedupe.Key(ip, t.pageViews[i].Path), t.pageViews[i].Time())
		}
	}
	metrics.UpdateStoredCounts(len(t.pageViews), len(t.events), len(t.heatmap))
}

// resetLocked empties all collections and erases the persisted keys.
func (t *Tracker) resetLocked(ctx context.Context, badKey string, cause error) {
	t.logger.Warn(ctx, "persisted telemetry is malformed, resetting",
		logger.String("key", badKey), logger.Error(cause))
	metrics.RecordPersistenceReset()

	t.pageViews = []model.PageView{}
	t.events = []model.Event{}
	t.heatmap = []model.HeatmapSample{}
	t.deduper.Reset(ctx)
	t.unreadable = make(map[string]bool)
	for _, key := range []string{KeyPageViews, KeyEvents, KeyHeatmap} {
		if err := t.storage.Delete(ctx, key); err != nil {
			t.logger.Warn(ctx, "failed to erase corrupt key", logger.String("key", key), logger.Error(err))
		}
	}
	metrics.UpdateStoredCounts(0, 0, 0)
}

// RecordPageView stores a page view for path. It returns false without an
// error when the view is a duplicate. The geolocation lookup is best effort.
func (t *Tracker) RecordPageView(ctx context.Context, path string, client model.Client) (bool, error) {
	ctx, span := tracing.Tracer().Start(ctx, "tracker.RecordPageView")
	defer span.End()

	path, err := cleanPath(path)
	if err != nil {
		return false, err
	}
	if t.isClosed() {
		return false, ErrClosed
	}

	now := t.now()
	ua := classify.UserAgent(client.UserAgent)
	pv := model.PageView{
		Path:       path,
		Timestamp:  now.UnixMilli(),
		UserAgent:  client.UserAgent,
		Referrer:   client.Referrer,
		SessionID:  t.session(client.SessionID),
		IP:         strings.TrimSpace(client.IP),
		Browser:    ua.Browser,
		OS:         ua.OS,
		DeviceType: ua.Device,
		ScreenSize: client.Screen,
	}

	// Outside the lock: a slow provider only delays this call.
	if loc, err := t.locator.Lookup(ctx, pv.IP); err != nil {
		if errors.Is(err, model.ErrNoLocation) || errors.Is(err, context.Canceled) {
			t.logger.Debug(ctx, "page view without geolocation", logger.String("path", path), logger.Error(err))
		} else {
			t.logger.Warn(ctx, "geolocation lookup failed", logger.String("path", path), logger.Error(err))
		}
	} else {
		pv.ApplyLocation(loc)
	}
	span.SetAttributes(
		attribute.String("page.path", path),
		attribute.Bool("page.geolocated", pv.Country != ""),
	)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false, ErrClosed
	}
	if pv.IP != "" && t.deduper.SeenAndRecord(ctx, dedupe.Key(pv.IP, pv.Path), pv.Time()) {
		metrics.RecordPageViewDuplicate()
		span.SetAttributes(attribute.Bool("page.duplicate", true))
		t.logger.Debug(ctx, "duplicate page view dropped",
			logger.String("path", path), logger.String("ip", pv.IP))
		return false, nil
	}

	if n := evictions(len(t.pageViews), 1, t.maxPageViews); n > 0 {
		t.pageViews = t.pageViews[n:]
		metrics.RecordEviction(collectionPageViews, n)
	}
	t.pageViews = append(t.pageViews, pv)
	t.dirty[KeyPageViews] = true
	_ = t.saveLocked(ctx)

	metrics.RecordPageView()
	t.updateCountsLocked()
	return true, nil
}

// RecordEvent validates and stores a named event for path.
func (t *Tracker) RecordEvent(ctx context.Context, path string, ev model.Event) error {
	if path == "" {
		path = ev.Path
	}
	path, err := cleanPath(path)
	if err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		metrics.RecordEventRejected()
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	data := make(map[string]any, len(ev.Data))
	for k, v := range ev.Data {
		data[k] = v
	}
	stored := model.Event{
		Name:      ev.Name,
		Data:      data,
		Timestamp: t.now().UnixMilli(),
		SessionID: t.session(ev.SessionID),
		Path:      path,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if n := evictions(len(t.events), 1, t.maxEvents); n > 0 {
		t.events = t.events[n:]
		metrics.RecordEviction(collectionEvents, n)
	}
	t.events = append(t.events, stored)
	t.dirty[KeyEvents] = true
	_ = t.saveLocked(ctx)

	metrics.RecordEvent(string(stored.Name))
	t.updateCountsLocked()
	return nil
}

// RecordHeatmapSample stores one sample. A zero value defaults to 1.0.
func (t *Tracker) RecordHeatmapSample(ctx context.Context, sample model.HeatmapSample) error {
	_, err := t.RecordHeatmapSamples(ctx, []model.HeatmapSample{sample})
	return err
}

// RecordHeatmapSamples stores a batch with a single write. The batch is
// rejected as a whole when any sample is invalid.
func (t *Tracker) RecordHeatmapSamples(ctx context.Context, samples []model.HeatmapSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	ts := t.now().UnixMilli()
	batch := make([]model.HeatmapSample, len(samples))
	for i, s := range samples {
		path, err := cleanPath(s.Path)
		if err != nil {
			return 0, err
		}
		if err := s.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidSample, err)
		}
		if s.Value == 0 {
			s.Value = 1.0
		}
		s.Path = path
		s.Timestamp = ts
		batch[i] = s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrClosed
	}
	if n := evictions(len(t.heatmap), len(batch), t.maxSamples); n > 0 {
		if n > len(t.heatmap) {
			// The batch alone exceeds the cap: keep its newest samples.
			batch = batch[n-len(t.heatmap):]
			t.heatmap = t.heatmap[:0]
		} else {
			t.heatmap = t.heatmap[n:]
		}
		metrics.RecordEviction(collectionHeatmap, n)
	}
	t.heatmap = append(t.heatmap, batch...)
	t.dirty[KeyHeatmap] = true
	_ = t.saveLocked(ctx)

	for i := range batch {
		metrics.RecordHeatmapSample(string(batch[i].Type))
	}
	t.updateCountsLocked()
	return len(batch), nil
}

// Snapshot computes the dashboard aggregates. It never mutates state.
func (t *Tracker) Snapshot(ctx context.Context, opts SnapshotOptions) (types.Snapshot, error) {
	ctx, span := tracing.Tracer().Start(ctx, "tracker.Snapshot")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return types.Snapshot{}, err
	}

	start := time.Now()
	in := t.input(opts)
	snap := stats.Compute(in)
	metrics.RecordSnapshotLatency(float64(time.Since(start).Milliseconds()))

	span.SetAttributes(
		attribute.Int("snapshot.days", snap.Days),
		attribute.Int("snapshot.total_visits", snap.TotalVisits),
	)
	return snap, nil
}

// input copies the collections so aggregation runs outside the lock.
// Records are immutable, so shallow copies are enough.
func (t *Tracker) input(opts SnapshotOptions) stats.Input {
	t.mu.Lock()
	defer t.mu.Unlock()
	return stats.Input{
		PageViews:     append([]model.PageView(nil), t.pageViews...),
		Events:        append([]model.Event(nil), t.events...),
		Heatmap:       append([]model.HeatmapSample(nil), t.heatmap...),
		Now:           t.now(),
		Location:      t.location,
		Days:          opts.Days,
		VisitorWindow: t.visitorWindow,
	}
}

// Heatmap returns the stored samples that match filter, oldest first.
func (t *Tracker) Heatmap(ctx context.Context, filter types.HeatmapFilter) ([]model.HeatmapSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.HeatmapSample, 0)
	for i := range t.heatmap {
		if filter.Match(&t.heatmap[i]) {
			out = append(out, t.heatmap[i])
		}
	}
	return out, nil
}

// Counts returns the collection sizes.
func (t *Tracker) Counts(ctx context.Context) types.Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	return types.Counts{
		PageViews:      len(t.pageViews),
		Events:         len(t.events),
		HeatmapSamples: len(t.heatmap),
	}
}

// Close writes all three collections one last time. Later mutations fail
// with ErrClosed; reads keep working.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, key := range []string{KeyPageViews, KeyEvents, KeyHeatmap} {
		t.dirty[key] = true
	}
	if err := t.saveLocked(ctx); err != nil {
		return fmt.Errorf("final flush: %w", err)
	}
	t.logger.Info(ctx, "tracker closed", logger.String("session", t.sessionID))
	return nil
}

// saveLocked writes every dirty key. Failures are logged and counted and
// the key stays dirty so the next mutation retries it.
func (t *Tracker) saveLocked(ctx context.Context) error {
	var errs []error
	for _, key := range []string{KeyPageViews, KeyEvents, KeyHeatmap} {
		if !t.dirty[key] || t.unreadable[key] {
			continue
		}
		start := time.Now()
		raw, err := t.encodeLocked(key)
		if err == nil {
			err = t.storage.Set(ctx, key, raw)
		}
		if err != nil {
			metrics.RecordPersistenceSaveFailure()
			t.logger.Warn(ctx, "failed to persist telemetry", logger.String("key", key), logger.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		delete(t.dirty, key)
		metrics.RecordPersistenceSave(float64(time.Since(start).Milliseconds()))
		metrics.UpdatePersistenceBytes(key, len(raw))
	}
	return errors.Join(errs...)
}

func (t *Tracker) encodeLocked(key string) (string, error) {
	var (
		b   []byte
		err error
	)
	switch key {
	case KeyPageViews:
		b, err = json.Marshal(t.pageViews)
	case KeyEvents:
		b, err = json.Marshal(t.events)
	case KeyHeatmap:
		b, err = json.Marshal(t.heatmap)
	}
	return string(b), err
}

// trimLocked applies the caps to freshly loaded collections.
func (t *Tracker) trimLocked() {
	if n := evictions(len(t.pageViews), 0, t.maxPageViews); n > 0 {
		t.pageViews = t.pageViews[n:]
		metrics.RecordEviction(collectionPageViews, n)
	}
	if n := evictions(len(t.events), 0, t.maxEvents); n > 0 {
		t.events = t.events[n:]
		metrics.RecordEviction(collectionEvents, n)
	}
	if n := evictions(len(t.heatmap), 0, t.maxSamples); n > 0 {
		t.heatmap = t.heatmap[n:]
		metrics.RecordEviction(collectionHeatmap, n)
	}
}

func (t *Tracker) updateCountsLocked() {
	metrics.UpdateStoredCounts(len(t.pageViews), len(t.events), len(t.heatmap))
}

func (t *Tracker) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Tracker) session(override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return override
	}
	return t.sessionID
}

// evictions is how many of the oldest records must go before adding
// incoming ones under limit. Zero limit means unbounded.
func evictions(current, incoming, limit int) int {
	if limit <= 0 {
		return 0
	}
	return max(current+incoming-limit, 0)
}

func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if len(path) > maxPathLength {
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidPath, maxPathLength)
	}
	return path, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
