// Package cache holds the materialized full-canvas snapshot.
//
// The cache is a single entry with whole-value replace semantics: there is
// exactly one cacheable query (the full snapshot) and it is keyed by nothing
// but the canvas itself. Incremental "since" queries never touch it.
package cache

import (
	"sync"
	"time"
)

// Snapshot is a one-entry TTL cache of the full latest-per-cell result.
type Snapshot[T any] struct {
	mu        sync.Mutex
	value     T
	expiresAt time.Time
	populated bool
	// now is swappable for tests.
	now func() time.Time
}

func NewSnapshot[T any]() *Snapshot[T] {
	return &Snapshot[T]{now: time.Now}
}

// Get returns the cached value if present and unexpired.
func (s *Snapshot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if !s.populated || s.now().After(s.expiresAt) {
		return zero, false
	}
	return s.value, true
}

// Put stores a value with the given time-to-live.
func (s *Snapshot[T]) Put(value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = value
	s.expiresAt = s.now().Add(ttl)
	s.populated = true
}

// Invalidate drops the cached value. Called after every accepted placement
// so the next full read recomputes from the store.
func (s *Snapshot[T]) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	s.value = zero
	s.populated = false
}
