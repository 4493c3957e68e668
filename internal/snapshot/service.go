// Package snapshot serves point-in-time reads of the canvas.
//
// Full snapshots are expensive whole-grid aggregations requested by every
// connecting viewer, so they are cached under a short TTL and invalidated
// eagerly on write. Incremental reads are small and always hit the store,
// which keeps the cache a single whole-value entry.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/placeboard/placeboard/internal/cache"
	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/circuitbreaker"
	"github.com/placeboard/placeboard/internal/metrics"
	"github.com/placeboard/placeboard/internal/storage"
)

// Service composes the snapshot cache with the grid store. Store reads run
// through a circuit breaker so a failing database makes readers fail fast
// instead of piling up.
type Service struct {
	store   storage.PlacementStore
	cache   *cache.Snapshot[[]canvas.Cell]
	breaker *circuitbreaker.Breaker
	ttl     time.Duration
}

func NewService(store storage.PlacementStore, c *cache.Snapshot[[]canvas.Cell], breaker *circuitbreaker.Breaker, ttl time.Duration) *Service {
	return &Service{store: store, cache: c, breaker: breaker, ttl: ttl}
}

// Full returns the latest color of every written cell. The second return
// reports whether the result came from cache.
func (s *Service) Full(ctx context.Context) ([]canvas.Cell, bool, error) {
	if cells, ok := s.cache.Get(); ok {
		metrics.SnapshotCacheHits.Inc()
		return cells, true, nil
	}
	metrics.SnapshotCacheMisses.Inc()

	var cells []canvas.Cell
	err := s.breaker.Execute(func() error {
		var err error
		cells, err = s.store.LatestPerCell(ctx, nil)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("full snapshot: %w", err)
	}

	s.cache.Put(cells, s.ttl)
	return cells, false, nil
}

// Since returns cells whose latest write is after the given instant.
// Never cached: the reconciliation path must see every committed write.
func (s *Service) Since(ctx context.Context, since time.Time) ([]canvas.Cell, error) {
	var cells []canvas.Cell
	err := s.breaker.Execute(func() error {
		var err error
		cells, err = s.store.LatestPerCell(ctx, &since)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("incremental snapshot: %w", err)
	}
	return cells, nil
}

// Invalidate drops the cached full snapshot.
func (s *Service) Invalidate() {
	s.cache.Invalidate()
}
