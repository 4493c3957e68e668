package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/identity"
	"github.com/placeboard/placeboard/internal/quota"
)

type actorProvider struct {
	actors map[string]*identity.Actor
}

func (p *actorProvider) Resolve(ctx context.Context, token string) (*identity.Actor, error) {
	if a, ok := p.actors[token]; ok {
		return a, nil
	}
	return nil, identity.ErrUnauthenticated
}

type actorTracker struct {
	status quota.Status
}

func (m *actorTracker) CheckAndReserve(ctx context.Context, actorID string) (*quota.Status, error) {
	panic("not used")
}

func (m *actorTracker) AwardPoints(ctx context.Context, actorID string, points int) error {
	panic("not used")
}

func (m *actorTracker) Status(ctx context.Context, actorID string) (*quota.Status, error) {
	st := m.status
	st.ActorID = actorID
	return &st, nil
}

type actorStore struct {
	placed    int
	lastActor string
}

func (s *actorStore) CountSince(ctx context.Context, actorID string, since time.Time) (int, error) {
	s.lastActor = actorID
	return s.placed, nil
}

func (s *actorStore) Append(ctx context.Context, req canvas.WriteRequest) (*canvas.Placement, error) {
	panic("not used")
}

func (s *actorStore) LatestPerCell(ctx context.Context, since *time.Time) ([]canvas.Cell, error) {
	panic("not used")
}

func (s *actorStore) ScanSince(ctx context.Context, afterAddedID int64, limit int) ([]canvas.Placement, error) {
	panic("not used")
}

func newActorHandler(tracker *actorTracker, store *actorStore) *ActorHandler {
	provider := &actorProvider{actors: map[string]*identity.Actor{
		"tok-session": {ID: "session-actor", DisplayName: "Session Actor"},
		"tok-bearer":  {ID: "bearer-actor", DisplayName: "Bearer Actor"},
	}}
	return NewActorHandler(provider, tracker, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func assertStatusError(t *testing.T, err error, want int) {
	t.Helper()
	var se huma.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected a status error, got %v", err)
	}
	if se.GetStatus() != want {
		t.Errorf("status = %d, want %d", se.GetStatus(), want)
	}
}

func TestActorQuota(t *testing.T) {
	tracker := &actorTracker{status: quota.Status{
		DailyUsed:         3,
		DailyAllowance:    11,
		Points:            57,
		CooldownRemaining: 1500 * time.Millisecond,
	}}
	store := &actorStore{placed: 3}
	h := newActorHandler(tracker, store)

	out, err := h.Quota(context.Background(), &ActorQuotaInput{SessionToken: "tok-session"})
	if err != nil {
		t.Fatalf("Quota: %v", err)
	}

	body := out.Body
	if !body.OK {
		t.Error("expected ok: true")
	}
	if body.ActorID != "session-actor" || body.DisplayName != "Session Actor" {
		t.Errorf("unexpected actor: %q / %q", body.ActorID, body.DisplayName)
	}
	if body.Points != 57 || body.DailyUsed != 3 || body.AllowedPixels != 11 {
		t.Errorf("budget = %d points, %d/%d used", body.Points, body.DailyUsed, body.AllowedPixels)
	}
	// 1.5s of cooldown rounds up to 2 whole seconds.
	if body.CooldownSeconds != 2 {
		t.Errorf("CooldownSeconds = %d, want 2", body.CooldownSeconds)
	}
	if body.PlacedToday != 3 {
		t.Errorf("PlacedToday = %d, want 3", body.PlacedToday)
	}
	if store.lastActor != "session-actor" {
		t.Errorf("counted placements for %q, want session-actor", store.lastActor)
	}
}

func TestActorQuota_BearerFallback(t *testing.T) {
	h := newActorHandler(&actorTracker{}, &actorStore{})

	out, err := h.Quota(context.Background(), &ActorQuotaInput{Authorization: "Bearer tok-bearer"})
	if err != nil {
		t.Fatalf("Quota: %v", err)
	}
	if out.Body.ActorID != "bearer-actor" {
		t.Errorf("ActorID = %q, want bearer-actor", out.Body.ActorID)
	}
}

func TestActorQuota_SessionTokenWinsOverBearer(t *testing.T) {
	h := newActorHandler(&actorTracker{}, &actorStore{})

	out, err := h.Quota(context.Background(), &ActorQuotaInput{
		SessionToken:  "tok-session",
		Authorization: "Bearer tok-bearer",
	})
	if err != nil {
		t.Fatalf("Quota: %v", err)
	}
	if out.Body.ActorID != "session-actor" {
		t.Errorf("ActorID = %q, want session-actor", out.Body.ActorID)
	}
}

func TestActorQuota_NoCredential(t *testing.T) {
	h := newActorHandler(&actorTracker{}, &actorStore{})

	_, err := h.Quota(context.Background(), &ActorQuotaInput{})
	assertStatusError(t, err, 401)
}

func TestActorQuota_UnknownToken(t *testing.T) {
	h := newActorHandler(&actorTracker{}, &actorStore{})

	_, err := h.Quota(context.Background(), &ActorQuotaInput{SessionToken: "bogus"})
	assertStatusError(t, err, 401)
}
