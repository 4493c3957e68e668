package storage

import (
	"context"
	"errors"
	"time"

	"github.com/placeboard/placeboard/internal/canvas"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("storage unavailable")

// PlacementStore is the durable append-only log of placements.
type PlacementStore interface {
	// Append inserts a new immutable placement. Returns the stored placement
	// with its assigned added_id and created_at. Never rejects on logical
	// grounds; validation happens upstream.
	Append(ctx context.Context, req canvas.WriteRequest) (*canvas.Placement, error)

	// LatestPerCell returns the latest placement per (x, y). When since is
	// non-nil only cells written after since are returned. Ties on
	// created_at are broken by added_id, i.e. insertion order.
	LatestPerCell(ctx context.Context, since *time.Time) ([]canvas.Cell, error)

	// CountSince counts an actor's placements at or after since. Used for
	// quota auditing and recovery.
	CountSince(ctx context.Context, actorID string, since time.Time) (int, error)

	// ScanSince returns placements with added_id > afterAddedID in insertion
	// order, up to limit. Used to tail the log for archive catch-up.
	ScanSince(ctx context.Context, afterAddedID int64, limit int) ([]canvas.Placement, error)
}
