// Package repository provides the key/value substrate telemetry is persisted to.
//
// A Store maps string keys to string values with synchronous get/set and no
// transactions. An absent key is reported with ok=false, never as an error.
package repository

import (
	"context"
	"fmt"
	"regexp"
)

// Drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store provides read/write access to persisted values.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying resources.
	Close() error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Open builds the Store for driver.
func Open(ctx context.Context, driver string, opts ...Option) (Store, error) {
	o := newOptions(opts...)
	switch driver {
	case DriverMemory:
		return NewMemoryStore(opts...), nil
	case DriverFile:
		return NewFileStore(o.path, opts...)
	case DriverSQLite:
		return OpenSQLite(ctx, o.path, opts...)
	case DriverPostgres:
		return OpenPostgres(ctx, o.dsn, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
