package quota

import (
	"context"
	"fmt"
	"time"
)

// DailyLimitError is returned when an actor has spent the day's allowance.
type DailyLimitError struct {
	Used    int
	Allowed int
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily limit reached: %d/%d", e.Used, e.Allowed)
}

// CooldownError is returned when the minimum interval between an actor's
// placements has not yet elapsed.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active: retry in %s", e.RetryAfter)
}

// Status is an actor's current budget, for UI display and the pipeline ack.
type Status struct {
	ActorID           string
	DailyUsed         int
	DailyAllowance    int
	Points            int
	CooldownRemaining time.Duration
}

// Tracker enforces the per-actor daily allowance and cooldown throttles.
type Tracker interface {
	// CheckAndReserve atomically verifies both throttles and, if both pass,
	// consumes one slot and stamps the placement time. Under concurrent
	// calls for the same actor at most dailyAllowance reservations succeed
	// per UTC day. Fails with *CooldownError or *DailyLimitError.
	CheckAndReserve(ctx context.Context, actorID string) (*Status, error)

	// AwardPoints credits earned points, raising future allowances.
	AwardPoints(ctx context.Context, actorID string, points int) error

	// Status reports the actor's remaining budget without consuming it.
	Status(ctx context.Context, actorID string) (*Status, error)
}

// Config holds the throttle parameters. A zero Cooldown disables the
// cooldown throttle entirely.
type Config struct {
	// MinDailyPixels floors the allowance so new actors can always place.
	MinDailyPixels int
	// PointsPerPixel is the cost of one daily slot in earned points.
	PointsPerPixel int
	// Cooldown is the minimum interval between an actor's placements.
	Cooldown time.Duration
}

// Allowance computes the daily allowance for a points balance.
func (c Config) Allowance(points int) int {
	allowance := points / c.PointsPerPixel
	if allowance < c.MinDailyPixels {
		return c.MinDailyPixels
	}
	return allowance
}
