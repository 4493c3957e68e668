package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeboard/placeboard/internal/canvas"
)

// PostgresStore implements PlacementStore using PostgreSQL.
type PostgresStore struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPostgresStore creates a PlacementStore backed by the placements table.
// queryTimeout sets the per-query context deadline; zero means no timeout.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{pool: pool, queryTimeout: queryTimeout}
}

// withTimeout derives a child context with the configured query timeout.
// If queryTimeout is zero, the parent context is returned unchanged.
func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout > 0 {
		return context.WithTimeout(ctx, s.queryTimeout)
	}
	return ctx, func() {}
}

func (s *PostgresStore) Append(ctx context.Context, req canvas.WriteRequest) (*canvas.Placement, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO placements (x, y, color, actor_id)
		VALUES ($1, $2, $3, $4)
		RETURNING added_id, x, y, color, actor_id, created_at
	`

	var p canvas.Placement
	err := s.pool.QueryRow(ctx, query, req.X, req.Y, req.Color, req.ActorID).
		Scan(&p.AddedID, &p.X, &p.Y, &p.Color, &p.ActorID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("append placement: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) LatestPerCell(ctx context.Context, since *time.Time) ([]canvas.Cell, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// added_id DESC is the tie-break for placements sharing created_at:
	// the row inserted later wins.
	query := `
		SELECT DISTINCT ON (x, y)
			x, y, color, actor_id, created_at
		FROM placements
		ORDER BY x, y, created_at DESC, added_id DESC
	`
	args := []any{}
	if since != nil {
		query = `
			SELECT DISTINCT ON (x, y)
				x, y, color, actor_id, created_at
			FROM placements
			WHERE created_at > $1
			ORDER BY x, y, created_at DESC, added_id DESC
		`
		args = append(args, *since)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("latest per cell: %w", err)
	}
	defer rows.Close()

	var cells []canvas.Cell
	for rows.Next() {
		var c canvas.Cell
		if err := rows.Scan(&c.X, &c.Y, &c.Color, &c.LastWriterID, &c.LastWriteTime); err != nil {
			return nil, fmt.Errorf("latest per cell scan: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (s *PostgresStore) CountSince(ctx context.Context, actorID string, since time.Time) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM placements WHERE actor_id = $1 AND created_at >= $2`,
		actorID, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count since: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ScanSince(ctx context.Context, afterAddedID int64, limit int) ([]canvas.Placement, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT added_id, x, y, color, actor_id, created_at
		FROM placements
		WHERE added_id > $1
		ORDER BY added_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, afterAddedID, limit)
	if err != nil {
		return nil, fmt.Errorf("scan placements: %w", err)
	}
	defer rows.Close()

	var placements []canvas.Placement
	for rows.Next() {
		var p canvas.Placement
		if err := rows.Scan(&p.AddedID, &p.X, &p.Y, &p.Color, &p.ActorID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan placements scan: %w", err)
		}
		placements = append(placements, p)
	}
	return placements, rows.Err()
}
