package model

import "time"

// BeaconKind tells which payload a Beacon carries.
type BeaconKind int

// Beacon kinds.
const (
	BeaconPageView BeaconKind = iota + 1
	BeaconEvent
	BeaconHeatmap
)

func (k BeaconKind) String() string {
	switch k {
	case BeaconPageView:
		return "pageview"
	case BeaconEvent:
		return "event"
	case BeaconHeatmap:
		return "heatmap"
	default:
		return "unknown"
	}
}

// Beacon is a unit of work flowing from the collector to the workers.
// Exactly one payload is set, matching Kind.
type Beacon struct {
	ID         string
	Kind       BeaconKind
	Path       string
	Client     Client
	Event      Event
	Samples    []HeatmapSample
	ReceivedAt time.Time
}

// NewPageViewBeacon wraps a page view request.
func NewPageViewBeacon(id, path string, client Client) Beacon {
	return Beacon{ID: id, Kind: BeaconPageView, Path: path, Client: client, ReceivedAt: time.Now()}
}

// NewEventBeacon wraps an event recorded on path.
func NewEventBeacon(id, path string, ev Event) Beacon {
	return Beacon{ID: id, Kind: BeaconEvent, Path: path, Event: ev, ReceivedAt: time.Now()}
}

// NewHeatmapBeacon wraps a batch of samples.
func NewHeatmapBeacon(id string, samples []HeatmapSample) Beacon {
	return Beacon{ID: id, Kind: BeaconHeatmap, Samples: samples, ReceivedAt: time.Now()}
}
