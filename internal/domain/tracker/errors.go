package tracker

import "errors"

// Sentinel kinds for tracker errors. Only invalid input and use after
// Close reach callers; storage and geolocation failures never do.
var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrInvalidEvent  = errors.New("invalid event")
	ErrInvalidSample = errors.New("invalid heatmap sample")
	ErrClosed        = errors.New("tracker closed")
	ErrNoStorage     = errors.New("tracker needs a storage")
)
