package geo

import (
	"errors"
	"fmt"

	"github.com/okian/footprint/internal/domain/model"
)

// Sentinel kinds for geolocation errors.
var (
	ErrLookupFailed = errors.New("geolocation lookup failed")
	ErrDisabled     = fmt.Errorf("geolocation disabled: %w", model.ErrNoLocation)
	ErrNotRoutable  = fmt.Errorf("address not routable: %w", model.ErrNoLocation)
)
