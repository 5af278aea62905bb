// Package model contains domain models passed between layers.
package model

import "time"

// ScreenSize is the viewport size reported by the browser.
type ScreenSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Location is the result of a geolocation lookup.
type Location struct {
	IP      string `json:"ip"`
	Country string `json:"country"`
	City    string `json:"city"`
	Region  string `json:"region"`
}

// Empty reports whether the lookup produced nothing usable.
func (l Location) Empty() bool {
	return l.IP == "" && l.Country == "" && l.City == "" && l.Region == ""
}

// Client describes the browser a beacon came from.
// The collector fills it from request headers and the beacon body.
type Client struct {
	UserAgent string
	Referrer  string
	Screen    ScreenSize
	// IP is the address observed by the collector. Empty when unknown.
	IP string
	// SessionID overrides the tracker's own session id when set.
	SessionID string
}

// PageView is one recorded navigation. Immutable once stored.
type PageView struct {
	Path       string     `json:"path"`
	Timestamp  int64      `json:"timestamp"` // ms since epoch
	UserAgent  string     `json:"userAgent"`
	Referrer   string     `json:"referrer"`
	SessionID  string     `json:"sessionId"`
	IP         string     `json:"ip,omitempty"`
	Country    string     `json:"country,omitempty"`
	City       string     `json:"city,omitempty"`
	Region     string     `json:"region,omitempty"`
	Browser    string     `json:"browser"`
	OS         string     `json:"os"`
	DeviceType string     `json:"deviceType"`
	ScreenSize ScreenSize `json:"screenSize"`
}

// Time returns Timestamp as a time.Time.
func (p *PageView) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// ApplyLocation copies the place fields onto the page view. The ip is
// always the one the collector observed.
func (p *PageView) ApplyLocation(loc Location) {
	p.Country = loc.Country
	p.City = loc.City
	p.Region = loc.Region
}
