package model

import "errors"

// Validation failures for incoming telemetry.
var (
	ErrEventName       = errors.New("invalid event name")
	ErrReservedEvent   = errors.New("reserved event name")
	ErrEventField      = errors.New("invalid event field")
	ErrTooManyFields   = errors.New("too many event fields")
	ErrHeatmapType     = errors.New("invalid heatmap type")
	ErrHeatmapPosition = errors.New("invalid heatmap coordinates")
)

// ErrNoLocation marks a lookup that was not attempted because geolocation
// is not available. It is not a failure worth reporting.
var ErrNoLocation = errors.New("geolocation unavailable")
