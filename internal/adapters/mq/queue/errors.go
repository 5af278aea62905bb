package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("beacon queue full")
	ErrClosed = errors.New("beacon queue closed")
)
