// Package stats computes dashboard aggregates from raw telemetry.
//
// Compute is a pure function of its input: same input, same snapshot.
package stats

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/footprint/internal/domain/classify"
	"github.com/okian/footprint/internal/domain/model"
	"github.com/okian/footprint/internal/domain/types"
)

// Defaults used when Input leaves a field zero.
const (
	DefaultDays          = 7
	DefaultVisitorWindow = 30 * time.Minute
	TopPagesLimit        = 5
	UnknownLabel         = "Unknown"
	DateLayout           = "2006-01-02"
)

// noTimeLabel is the average time on site before any time_on_page event.
const noTimeLabel = "0m"

// Input is everything a snapshot is computed from.
// The slices are read, never modified.
type Input struct {
	PageViews     []model.PageView
	Events        []model.Event
	Heatmap       []model.HeatmapSample
	Now           time.Time
	Location      *time.Location
	Days          int
	VisitorWindow time.Duration
}

// Compute builds the dashboard snapshot.
func Compute(in Input) types.Snapshot {
	if in.Days <= 0 {
		in.Days = DefaultDays
	}
	if in.VisitorWindow <= 0 {
		in.VisitorWindow = DefaultVisitorWindow
	}
	if in.Location == nil {
		in.Location = time.Local
	}

	recent := Recent(in.PageViews, in.Now, in.VisitorWindow)
	unique, returning := Visitors(recent)
	avg, timed := AverageTimeOnPage(in.Events)
	avgLabel := noTimeLabel
	if timed {
		avgLabel = FormatDuration(avg)
	}

	heatmap := make([]model.HeatmapSample, len(in.Heatmap))
	copy(heatmap, in.Heatmap)

	return types.Snapshot{
		TotalVisits:         len(in.PageViews),
		PageViews:           len(in.PageViews),
		UniqueVisitors:      unique,
		ReturningVisitors:   returning,
		VisitorDetails:      VisitorDetails(recent),
		TopPages:            TopPages(in.PageViews, TopPagesLimit),
		TrafficSources:      Shares(in.PageViews, func(p *model.PageView) string { return classify.TrafficSource(p.Referrer) }),
		DeviceTypes:         Shares(in.PageViews, func(p *model.PageView) string { return p.DeviceType }),
		BrowserStats:        Shares(in.PageViews, func(p *model.PageView) string { return p.Browser }),
		DailyVisits:         Daily(in.PageViews, in.Now, in.Location, in.Days),
		Geolocation:         Geo(recent),
		BounceRate:          BounceRate(in.PageViews),
		AverageTimeOnSite:   avgLabel,
		AverageTimeOnSiteMs: avg.Milliseconds(),
		HeatmapData:         heatmap,
		GeneratedAt:         in.Now.UnixMilli(),
		Days:                in.Days,
	}
}

// Percent rounds part/total*100 half up. Zero total gives zero.
func Percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(part)*100/float64(total) + 0.5))
}

// counter tallies labels and remembers their first-appearance order.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(label string) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
	}
	c.counts[label]++
}

// sorted returns labels by count desc, ties in first-appearance order.
func (c *counter) sorted() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	sort.SliceStable(out, func(i, j int) bool { return c.counts[out[i]] > c.counts[out[j]] })
	return out
}

// Shares buckets views by label and converts counts to percentages.
// Categories keep first-appearance order.
func Shares(views []model.PageView, label func(*model.PageView) string) []types.Share {
	c := newCounter()
	for i := range views {
		l := label(&views[i])
		if l == "" {
			l = UnknownLabel
		}
		c.add(l)
	}
	out := make([]types.Share, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, types.Share{Name: name, Percentage: Percent(c.counts[name], len(views))})
	}
	return out
}

// TopPages returns the limit most viewed paths.
func TopPages(views []model.PageView, limit int) []types.PageCount {
	c := newCounter()
	for i := range views {
		c.add(views[i].Path)
	}
	paths := c.sorted()
	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	out := make([]types.PageCount, 0, len(paths))
	for _, p := range paths {
		out = append(out, types.PageCount{Path: p, Views: c.counts[p]})
	}
	return out
}

// Daily returns exactly days entries ending today, oldest first.
func Daily(views []model.PageView, now time.Time, loc *time.Location, days int) []types.DailyVisits {
	counts := make(map[string]int)
	for i := range views {
		counts[views[i].Time().In(loc).Format(DateLayout)]++
	}
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	out := make([]types.DailyVisits, 0, days)
	for i := days - 1; i >= 0; i-- {
		label := today.AddDate(0, 0, -i).Format(DateLayout)
		out = append(out, types.DailyVisits{Date: label, Visits: counts[label]})
	}
	return out
}

// Recent keeps the views less than window older than now.
func Recent(views []model.PageView, now time.Time, window time.Duration) []model.PageView {
	var out []model.PageView
	for i := range views {
		if now.Sub(views[i].Time()) < window {
			out = append(out, views[i])
		}
	}
	return out
}

func visitorKey(p *model.PageView) string {
	if p.IP == "" {
		return UnknownLabel
	}
	return p.IP
}

// Visitors counts distinct ips and the ips seen more than once.
// Views without an ip are not visitors.
func Visitors(recent []model.PageView) (unique, returning int) {
	seen := make(map[string]int)
	for i := range recent {
		if recent[i].IP != "" {
			seen[recent[i].IP]++
		}
	}
	for _, n := range seen {
		if n > 1 {
			returning++
		}
	}
	return len(seen), returning
}

// VisitorDetails returns the latest view per ip, newest first.
func VisitorDetails(recent []model.PageView) []types.VisitorDetail {
	latest := make(map[string]*model.PageView)
	var order []string
	for i := range recent {
		p := &recent[i]
		k := visitorKey(p)
		cur, ok := latest[k]
		if !ok {
			order = append(order, k)
		}
		if !ok || p.Timestamp >= cur.Timestamp {
			latest[k] = p
		}
	}
	out := make([]types.VisitorDetail, 0, len(order))
	for _, k := range order {
		p := latest[k]
		out = append(out, types.VisitorDetail{
			IP:        k,
			Country:   orUnknown(p.Country),
			City:      orUnknown(p.City),
			Region:    p.Region,
			Path:      p.Path,
			Timestamp: p.Timestamp,
			Browser:   p.Browser,
			OS:        p.OS,
			Device:    p.DeviceType,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// Geo counts recent views per country and per city, most visited first.
// Views without a place are skipped.
func Geo(recent []model.PageView) types.Geolocation {
	countries, cities := newCounter(), newCounter()
	for i := range recent {
		if c := recent[i].Country; c != "" {
			countries.add(c)
		}
		if c := recent[i].City; c != "" {
			cities.add(c)
		}
	}
	return types.Geolocation{
		Countries: places(countries),
		Cities:    places(cities),
	}
}

func places(c *counter) []types.PlaceCount {
	names := c.sorted()
	out := make([]types.PlaceCount, 0, len(names))
	for _, n := range names {
		out = append(out, types.PlaceCount{Name: n, Visits: c.counts[n]})
	}
	return out
}

// BounceRate is the share of sessions with exactly one page view.
func BounceRate(views []model.PageView) int {
	sessions := make(map[string]int)
	for i := range views {
		sessions[views[i].SessionID]++
	}
	bounced := 0
	for _, n := range sessions {
		if n == 1 {
			bounced++
		}
	}
	return Percent(bounced, len(sessions))
}

// AverageTimeOnPage is the mean duration of time_on_page events. ok is
// false when there are none.
func AverageTimeOnPage(events []model.Event) (avg time.Duration, ok bool) {
	var (
		total time.Duration
		n     int
	)
	for i := range events {
		if d, ok := events[i].Duration(); ok {
			total += d
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / time.Duration(n), true
}

// FormatDuration renders d as "Xm Ys" with both parts truncated.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%dm %ds", int64(d/time.Minute), int64(d%time.Minute/time.Second))
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownLabel
	}
	return s
}
