// Package pipeline is the only path allowed to mutate canvas state. Every
// placement request passes through the same sequence: authenticate,
// validate, quota-check, persist, invalidate+publish, award, acknowledge.
// Failures before persist leave no side effect anywhere; failures after
// persist are swallowed from the caller's perspective and surfaced through
// logs and metrics instead: an accepted write is never un-accepted.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/placeboard/placeboard/internal/bus"
	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/events"
	"github.com/placeboard/placeboard/internal/identity"
	"github.com/placeboard/placeboard/internal/metrics"
	"github.com/placeboard/placeboard/internal/quota"
	"github.com/placeboard/placeboard/internal/storage"
)

// Invalidator drops the local cached snapshot. Satisfied by *snapshot.Service.
type Invalidator interface {
	Invalidate()
}

// Request is one candidate placement with its transport credentials.
type Request struct {
	X          int
	Y          int
	Color      string
	Credential identity.Credential
}

// Result is the acknowledgment for an accepted placement.
type Result struct {
	Placement *canvas.Placement
	Actor     *identity.Actor
	// Quota is the actor's budget after the reservation; nil for system actors.
	Quota *quota.Status
}

// Service orchestrates the accept pipeline.
type Service struct {
	bounds    canvas.Bounds
	auth      *identity.Authenticator
	tracker   quota.Tracker
	store     storage.PlacementStore
	snapshots Invalidator
	publisher bus.Publisher
	calendar  *events.Calendar
	// pointsPerPlacement is the base points award, multiplied by the
	// calendar's active bonus.
	pointsPerPlacement int
	logger             *slog.Logger
	now                func() time.Time
}

func NewService(
	bounds canvas.Bounds,
	auth *identity.Authenticator,
	tracker quota.Tracker,
	store storage.PlacementStore,
	snapshots Invalidator,
	publisher bus.Publisher,
	calendar *events.Calendar,
	pointsPerPlacement int,
	logger *slog.Logger,
) *Service {
	return &Service{
		bounds:             bounds,
		auth:               auth,
		tracker:            tracker,
		store:              store,
		snapshots:          snapshots,
		publisher:          publisher,
		calendar:           calendar,
		pointsPerPlacement: pointsPerPlacement,
		logger:             logger,
		now:                time.Now,
	}
}

// Place runs one request through the pipeline. On error the returned value
// is nil and the error is one of identity.ErrUnauthenticated,
// canvas.ErrInvalidColor, canvas.ErrOutOfBounds, *quota.CooldownError,
// *quota.DailyLimitError, or a storage failure.
func (s *Service) Place(ctx context.Context, req Request) (*Result, error) {
	start := s.now()

	actor, err := s.auth.Authenticate(ctx, req.Credential)
	if err != nil {
		metrics.PlacementsTotal.WithLabelValues("unauthenticated").Inc()
		return nil, err
	}

	write := canvas.WriteRequest{X: req.X, Y: req.Y, Color: req.Color}
	if err := s.bounds.Validate(write); err != nil {
		metrics.PlacementsTotal.WithLabelValues(outcomeFor(err)).Inc()
		return nil, err
	}

	// System actors skip quota, never validation.
	var st *quota.Status
	if !actor.System {
		st, err = s.tracker.CheckAndReserve(ctx, actor.ID)
		if err != nil {
			metrics.PlacementsTotal.WithLabelValues(outcomeFor(err)).Inc()
			return nil, err
		}
		write.ActorID = &actor.ID
	}

	placement, err := s.store.Append(ctx, write)
	if err != nil {
		metrics.PlacementsTotal.WithLabelValues("storage-error").Inc()
		s.logger.Error("placement persist failed",
			"actor", actor.ID, "x", req.X, "y", req.Y, "error", err)
		return nil, err
	}

	// Past this point the write is durable. Invalidate before publish so a
	// viewer reacting to the pushed event cannot re-read the stale cached
	// snapshot from this process. Both failures are non-fatal.
	s.snapshots.Invalidate()

	ev := bus.Event{
		AddedID:   placement.AddedID,
		X:         placement.X,
		Y:         placement.Y,
		Color:     placement.Color,
		UserID:    placement.ActorID,
		CreatedAt: placement.CreatedAt.UnixMilli(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		metrics.PublishFailures.Inc()
		s.logger.Error("placement publish failed; viewers will reconcile via snapshot",
			"added_id", placement.AddedID, "error", err)
	}

	if !actor.System {
		award := s.pointsPerPlacement * s.calendar.Multiplier(placement.CreatedAt)
		if err := s.tracker.AwardPoints(ctx, actor.ID, award); err != nil {
			s.logger.Error("points award failed",
				"actor", actor.ID, "added_id", placement.AddedID, "error", err)
		}
	}

	metrics.PlacementsTotal.WithLabelValues("accepted").Inc()
	s.logger.Info("placement accepted",
		"actor", actor.ID,
		"system", actor.System,
		"x", placement.X, "y", placement.Y, "color", placement.Color,
		"added_id", placement.AddedID,
		"duration", time.Since(start),
	)

	return &Result{Placement: placement, Actor: actor, Quota: st}, nil
}

func outcomeFor(err error) string {
	var cooldown *quota.CooldownError
	var limit *quota.DailyLimitError
	switch {
	case errors.As(err, &cooldown):
		return "cooldown"
	case errors.As(err, &limit):
		return "daily-limit-reached"
	case errors.Is(err, canvas.ErrInvalidColor):
		return "invalid-color"
	case errors.Is(err, canvas.ErrOutOfBounds):
		return "out-of-bounds"
	}
	return "rejected"
}
