package repository

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps values in a map. With a quota it behaves like browser
// storage that refuses writes once full.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	quota  int
	used   int
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := newOptions(opts...)
	return &MemoryStore{
		values: make(map[string]string),
		quota:  o.quota,
	}
}

// Get returns the value held for key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key, failing with ErrQuotaExceeded when the
// quota would be exceeded.
func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	used := s.used - len(s.values[key]) + len(value)
	if s.quota > 0 && used > s.quota {
		return fmt.Errorf("%w: %d of %d bytes", ErrQuotaExceeded, used, s.quota)
	}
	s.values[key] = value
	s.used = used
	return nil
}

// Delete drops key and releases its share of the quota.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.used -= len(s.values[key])
	delete(s.values, key)
	return nil
}

// Close makes every later call fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Put writes value without key or quota checks.
// Tests use it to plant corrupt data.
func (s *MemoryStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used += len(value) - len(s.values[key])
	s.values[key] = value
}

// Len returns the number of keys held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}
