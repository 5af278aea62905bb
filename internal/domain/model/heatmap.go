package model

import (
	"fmt"
	"math"
)

// HeatmapType is the interaction a sample came from.
type HeatmapType string

// Heatmap sample types.
const (
	HeatmapClick  HeatmapType = "click"
	HeatmapHover  HeatmapType = "hover"
	HeatmapScroll HeatmapType = "scroll"
)

// Valid reports whether t is a known sample type.
func (t HeatmapType) Valid() bool {
	switch t {
	case HeatmapClick, HeatmapHover, HeatmapScroll:
		return true
	}
	return false
}

// DefaultValue is the intensity the beacon script assigns to t.
func (t HeatmapType) DefaultValue() float64 {
	switch t {
	case HeatmapHover:
		return 0.1
	case HeatmapScroll:
		return 0.5
	default:
		return 1.0
	}
}

// HeatmapSample is one pointer or scroll interaction.
// X and Y are pixels for click/hover and page percentage for scroll.
type HeatmapSample struct {
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Value     float64     `json:"value"`
	Timestamp int64       `json:"timestamp"`
	Path      string      `json:"path"`
	Type      HeatmapType `json:"type"`
}

// Validate checks the type and coordinates.
func (s *HeatmapSample) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrHeatmapType, s.Type)
	}
	for _, v := range []float64{s.X, s.Y, s.Value} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrHeatmapPosition
		}
	}
	if s.X < 0 || s.Y < 0 {
		return fmt.Errorf("%w: negative coordinate", ErrHeatmapPosition)
	}
	return nil
}
