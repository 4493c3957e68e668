package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTracker implements Tracker over the quotas table. The reserve path
// is a single conditional UPDATE so two racing requests for the same actor
// can never both take the last slot.
type PostgresTracker struct {
	pool *pgxpool.Pool
	cfg  Config
	// now is swappable for tests.
	now func() time.Time
}

func NewPostgresTracker(pool *pgxpool.Pool, cfg Config) *PostgresTracker {
	return &PostgresTracker{pool: pool, cfg: cfg, now: time.Now}
}

// utcDay truncates t to its UTC calendar date.
func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (t *PostgresTracker) ensureRow(ctx context.Context, actorID string) error {
	_, err := t.pool.Exec(ctx,
		`INSERT INTO quotas (actor_id) VALUES ($1) ON CONFLICT (actor_id) DO NOTHING`,
		actorID,
	)
	if err != nil {
		return fmt.Errorf("ensure quota row: %w", err)
	}
	return nil
}

func (t *PostgresTracker) CheckAndReserve(ctx context.Context, actorID string) (*Status, error) {
	if err := t.ensureRow(ctx, actorID); err != nil {
		return nil, err
	}

	now := t.now()
	today := utcDay(now)

	// The cooldown passes only once strictly more than Cooldown has elapsed,
	// so cutoff itself is still inside the window. nil disables the condition.
	var cutoff *time.Time
	if t.cfg.Cooldown > 0 {
		c := now.Add(-t.cfg.Cooldown)
		cutoff = &c
	}

	// The CASE folds the lazy daily reset into the same statement: a stale
	// last_reset_date means today's usage is zero regardless of daily_used.
	query := `
		UPDATE quotas SET
			daily_used        = CASE WHEN last_reset_date < $2 THEN 1 ELSE daily_used + 1 END,
			last_reset_date   = CASE WHEN last_reset_date < $2 THEN $2 ELSE last_reset_date END,
			last_placement_at = $5,
			updated_at        = now()
		WHERE actor_id = $1
		  AND (CASE WHEN last_reset_date < $2 THEN 0 ELSE daily_used END)
		      < GREATEST($3::int, points / $4)
		  AND ($6::timestamptz IS NULL OR last_placement_at IS NULL OR last_placement_at < $6)
		RETURNING daily_used, points
	`

	var used, points int
	err := t.pool.QueryRow(ctx, query,
		actorID, today, t.cfg.MinDailyPixels, t.cfg.PointsPerPixel, now, cutoff,
	).Scan(&used, &points)
	if err == nil {
		return &Status{
			ActorID:        actorID,
			DailyUsed:      used,
			DailyAllowance: t.cfg.Allowance(points),
			Points:         points,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reserve quota: %w", err)
	}

	// Denied. The re-read is not atomic with the failed UPDATE: a rollover
	// or award racing in between can make the reported reason stale, but
	// the reservation decision itself is already final. Classified against
	// the same clock reading the UPDATE used.
	row, err := t.readRow(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if t.cfg.Cooldown > 0 && row.lastAt != nil {
		if elapsed := now.Sub(*row.lastAt); elapsed <= t.cfg.Cooldown {
			return nil, &CooldownError{RetryAfter: t.cfg.Cooldown - elapsed}
		}
	}
	used = row.used
	if row.resetDate.Before(today) {
		used = 0
	}
	return nil, &DailyLimitError{Used: used, Allowed: t.cfg.Allowance(row.points)}
}

func (t *PostgresTracker) AwardPoints(ctx context.Context, actorID string, points int) error {
	if err := t.ensureRow(ctx, actorID); err != nil {
		return err
	}
	_, err := t.pool.Exec(ctx,
		`UPDATE quotas SET points = points + $2, updated_at = now() WHERE actor_id = $1`,
		actorID, points,
	)
	if err != nil {
		return fmt.Errorf("award points: %w", err)
	}
	return nil
}

type quotaRow struct {
	used      int
	points    int
	resetDate time.Time
	lastAt    *time.Time
}

func (t *PostgresTracker) readRow(ctx context.Context, actorID string) (*quotaRow, error) {
	var r quotaRow
	err := t.pool.QueryRow(ctx,
		`SELECT daily_used, points, last_reset_date, last_placement_at
		 FROM quotas WHERE actor_id = $1`,
		actorID,
	).Scan(&r.used, &r.points, &r.resetDate, &r.lastAt)
	if err != nil {
		return nil, fmt.Errorf("read quota row: %w", err)
	}
	return &r, nil
}

func (t *PostgresTracker) Status(ctx context.Context, actorID string) (*Status, error) {
	if err := t.ensureRow(ctx, actorID); err != nil {
		return nil, err
	}

	row, err := t.readRow(ctx, actorID)
	if err != nil {
		return nil, err
	}

	now := t.now()
	used := row.used
	if row.resetDate.Before(utcDay(now)) {
		used = 0
	}

	var remaining time.Duration
	if t.cfg.Cooldown > 0 && row.lastAt != nil {
		if elapsed := now.Sub(*row.lastAt); elapsed < t.cfg.Cooldown {
			remaining = t.cfg.Cooldown - elapsed
		}
	}

	return &Status{
		ActorID:           actorID,
		DailyUsed:         used,
		DailyAllowance:    t.cfg.Allowance(row.points),
		Points:            row.points,
		CooldownRemaining: remaining,
	}, nil
}
