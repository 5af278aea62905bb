package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotConfigured = errors.New("storage is not configured")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrInvalidKey    = errors.New("invalid storage key")
	ErrClosed        = errors.New("storage closed")
)
