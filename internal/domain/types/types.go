// Package types contains the read-side shapes returned to dashboards.
package types

import "github.com/okian/footprint/internal/domain/model"

// PageCount is one row of the top pages list.
type PageCount struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

// Share is a category with its percentage of all page views.
type Share struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
}

// DailyVisits is the view count for one calendar day.
type DailyVisits struct {
	Date   string `json:"date"`
	Visits int    `json:"visits"`
}

// PlaceCount is a country or city with its view count.
type PlaceCount struct {
	Name   string `json:"name"`
	Visits int    `json:"visits"`
}

// Geolocation groups place counts over the visitor window.
type Geolocation struct {
	Countries []PlaceCount `json:"countries"`
	Cities    []PlaceCount `json:"cities"`
}

// VisitorDetail is the most recent page view of one visitor ip.
type VisitorDetail struct {
	IP        string `json:"ip"`
	Country   string `json:"country"`
	City      string `json:"city"`
	Region    string `json:"region,omitempty"`
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	Device    string `json:"deviceType"`
}

// Snapshot is the full set of aggregates shown on the dashboard.
type Snapshot struct {
	TotalVisits         int                   `json:"totalVisits"`
	PageViews           int                   `json:"pageViews"`
	UniqueVisitors      int                   `json:"uniqueVisitors"`
	ReturningVisitors   int                   `json:"returningVisitors"`
	VisitorDetails      []VisitorDetail       `json:"visitorDetails"`
	TopPages            []PageCount           `json:"topPages"`
	TrafficSources      []Share               `json:"trafficSources"`
	DeviceTypes         []Share               `json:"deviceTypes"`
	BrowserStats        []Share               `json:"browserStats"`
	DailyVisits         []DailyVisits         `json:"dailyVisits"`
	Geolocation         Geolocation           `json:"geolocation"`
	BounceRate          int                   `json:"bounceRate"`
	AverageTimeOnSite   string                `json:"averageTimeOnSite"`
	AverageTimeOnSiteMs int64                 `json:"averageTimeOnSiteMs"`
	HeatmapData         []model.HeatmapSample `json:"heatmapData"`
	GeneratedAt         int64                 `json:"generatedAt"`
	Days                int                   `json:"days"`
}

// Counts reports the sizes of the stored collections.
type Counts struct {
	PageViews      int `json:"pageViews"`
	Events         int `json:"events"`
	HeatmapSamples int `json:"heatmapSamples"`
}

// HeatmapFilter narrows a heatmap query. Empty fields match everything.
type HeatmapFilter struct {
	Path string
	Type model.HeatmapType
}

// Match reports whether s passes the filter.
func (f HeatmapFilter) Match(s *model.HeatmapSample) bool {
	if f.Path != "" && s.Path != f.Path {
		return false
	}
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	return true
}
