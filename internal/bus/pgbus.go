package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/placeboard/placeboard/internal/storage"
)

const (
	channel      = "canvas_updates"
	catchUpBatch = 500
)

// PgBus bridges the in-process Broker across stateless server instances
// using Postgres NOTIFY/LISTEN. Publishes from any instance reach the
// brokers of all instances, including the publishing one.
type PgBus struct {
	pool    *pgxpool.Pool
	store   storage.PlacementStore
	broker  *Broker
	logger  *slog.Logger
	backoff time.Duration

	// lastSeen is the highest added_id dispatched to the local broker.
	// Touched only by the Listen goroutine.
	lastSeen int64
}

// notifyPayload is the cross-instance wire format: the viewer event plus
// its log position, which listeners track so they can replay placements
// missed across a reconnect.
type notifyPayload struct {
	AddedID int64 `json:"addedId"`
	Event
}

func NewPgBus(pool *pgxpool.Pool, store storage.PlacementStore, broker *Broker, logger *slog.Logger) *PgBus {
	return &PgBus{pool: pool, store: store, broker: broker, logger: logger, backoff: time.Second}
}

// Publish broadcasts the event to every listening instance. Best effort,
// at most once per call: there is no retry and no durable queue behind it.
func (b *PgBus) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(notifyPayload{AddedID: ev.AddedID, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, channel, string(payload)); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Listen holds a dedicated connection on LISTEN and dispatches incoming
// notifications to the local broker. Runs until ctx is cancelled,
// reconnecting with backoff on connection loss. On reattach the gap since
// the last dispatched added_id is replayed from the placements log, so
// viewers connected to this instance don't silently miss writes accepted
// during the outage.
func (b *PgBus) Listen(ctx context.Context) {
	for {
		if err := b.listenOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			b.logger.Error("bus listener disconnected", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.backoff):
		}
	}
}

func (b *PgBus) listenOnce(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `LISTEN `+channel); err != nil {
		return fmt.Errorf("listen %s: %w", channel, err)
	}
	b.logger.Info("bus listener attached", "channel", channel)

	// Catch up after LISTEN is active, not before: anything appended from
	// here on arrives as a notification, so the two paths cannot leave a gap.
	if err := b.catchUp(ctx); err != nil {
		return err
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var p notifyPayload
		if err := json.Unmarshal([]byte(notification.Payload), &p); err != nil {
			b.logger.Error("bus event unmarshal failed", "payload", notification.Payload, "error", err)
			continue
		}
		ev := p.Event
		ev.AddedID = p.AddedID
		if p.AddedID > b.lastSeen {
			b.lastSeen = p.AddedID
		}
		b.broker.Dispatch(ev)
	}
}

// catchUp tails the placements log from the last dispatched added_id and
// replays everything appended while the listener was detached. A fresh
// listener with no watermark has nothing to replay; its viewers start from
// a snapshot anyway.
func (b *PgBus) catchUp(ctx context.Context) error {
	if b.lastSeen == 0 {
		return nil
	}

	replayed := 0
	for {
		placements, err := b.store.ScanSince(ctx, b.lastSeen, catchUpBatch)
		if err != nil {
			return fmt.Errorf("scan missed placements: %w", err)
		}
		for _, p := range placements {
			b.broker.Dispatch(Event{
				AddedID:   p.AddedID,
				X:         p.X,
				Y:         p.Y,
				Color:     p.Color,
				UserID:    p.ActorID,
				CreatedAt: p.CreatedAt.UnixMilli(),
			})
			b.lastSeen = p.AddedID
		}
		replayed += len(placements)
		if len(placements) < catchUpBatch {
			break
		}
	}

	if replayed > 0 {
		b.logger.Info("replayed placements missed while detached", "count", replayed)
	}
	return nil
}
