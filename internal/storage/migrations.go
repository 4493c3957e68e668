package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates all tables and indexes the service needs.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS placements (
			added_id   BIGSERIAL PRIMARY KEY,
			x          INTEGER NOT NULL,
			y          INTEGER NOT NULL,
			color      TEXT NOT NULL,
			actor_id   TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE INDEX IF NOT EXISTS idx_placements_cell
			ON placements (x, y, created_at DESC, added_id DESC);

		CREATE INDEX IF NOT EXISTS idx_placements_created_at
			ON placements (created_at);

		CREATE INDEX IF NOT EXISTS idx_placements_actor
			ON placements (actor_id, created_at);

		CREATE TABLE IF NOT EXISTS actors (
			actor_id     TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			api_token    TEXT NOT NULL UNIQUE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS quotas (
			actor_id          TEXT PRIMARY KEY,
			daily_used        INTEGER NOT NULL DEFAULT 0,
			points            INTEGER NOT NULL DEFAULT 0,
			last_reset_date   DATE NOT NULL DEFAULT (now() AT TIME ZONE 'UTC')::date,
			last_placement_at TIMESTAMPTZ,
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
		);

		CREATE TABLE IF NOT EXISTS canvas_archives (
			id          BIGSERIAL PRIMARY KEY,
			archive_date DATE NOT NULL UNIQUE,
			cols        INTEGER NOT NULL,
			rows        INTEGER NOT NULL,
			cell_count  INTEGER NOT NULL,
			grid        BYTEA NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`

	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
