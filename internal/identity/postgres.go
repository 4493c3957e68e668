package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresProvider resolves tokens against the actors table.
type PostgresProvider struct {
	pool *pgxpool.Pool
}

func NewPostgresProvider(pool *pgxpool.Pool) *PostgresProvider {
	return &PostgresProvider{pool: pool}
}

func (p *PostgresProvider) Resolve(ctx context.Context, token string) (*Actor, error) {
	var a Actor
	err := p.pool.QueryRow(ctx,
		`SELECT actor_id, display_name FROM actors WHERE api_token = $1`,
		token,
	).Scan(&a.ID, &a.DisplayName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	return &a, nil
}
