package api

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/placeboard/placeboard/internal/identity"
	"github.com/placeboard/placeboard/internal/quota"
	"github.com/placeboard/placeboard/internal/storage"
)

// --- Huma Input/Output types ---

type ActorQuotaInput struct {
	Authorization string `header:"Authorization" doc:"Bearer session token"`
	SessionToken  string `header:"X-Session-Token" doc:"Session token"`
}

type ActorQuotaBody struct {
	OK              bool   `json:"ok" doc:"Always true on success"`
	ActorID         string `json:"actorId" doc:"Stable actor identifier"`
	DisplayName     string `json:"displayName" doc:"Display name"`
	Points          int    `json:"points" doc:"Earned points balance"`
	DailyUsed       int    `json:"dailyPixelsUsed" doc:"Placements used today (UTC)"`
	AllowedPixels   int    `json:"allowedPixels" doc:"Today's placement allowance"`
	CooldownSeconds int    `json:"cooldownSeconds" doc:"Seconds until the next placement is allowed"`
	PlacedToday     int    `json:"placedToday" doc:"Placements recorded today, from the grid store"`
}

type ActorQuotaOutput struct {
	Body ActorQuotaBody
}

// --- Handler ---

// ActorHandler serves per-actor budget lookups for UI display.
type ActorHandler struct {
	provider identity.Provider
	tracker  quota.Tracker
	store    storage.PlacementStore
	logger   *slog.Logger
}

func NewActorHandler(provider identity.Provider, tracker quota.Tracker, store storage.PlacementStore, logger *slog.Logger) *ActorHandler {
	return &ActorHandler{provider: provider, tracker: tracker, store: store, logger: logger}
}

func registerActorRoutes(api huma.API, h *ActorHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-actor-quota",
		Method:      http.MethodGet,
		Path:        "/v1/actors/me/quota",
		Summary:     "Get the calling actor's placement budget",
		Tags:        []string{"actors"},
	}, h.Quota)
}

func (h *ActorHandler) Quota(ctx context.Context, input *ActorQuotaInput) (*ActorQuotaOutput, error) {
	token := input.SessionToken
	if token == "" {
		token = strings.TrimSpace(strings.TrimPrefix(input.Authorization, "Bearer "))
	}
	if token == "" {
		return nil, huma.Error401Unauthorized("unauthenticated")
	}

	actor, err := h.provider.Resolve(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrUnauthenticated) {
			return nil, huma.Error401Unauthorized("unauthenticated")
		}
		h.logger.Error("actor resolve failed", "error", err)
		return nil, huma.Error500InternalServerError("failed to resolve actor")
	}

	st, err := h.tracker.Status(ctx, actor.ID)
	if err != nil {
		h.logger.Error("quota status failed", "actor", actor.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to read quota")
	}

	// Audit count straight from the grid store; diverges from daily_used
	// only if a quota update was lost.
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	placed, err := h.store.CountSince(ctx, actor.ID, midnight)
	if err != nil {
		h.logger.Error("placement count failed", "actor", actor.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to count placements")
	}

	return &ActorQuotaOutput{Body: ActorQuotaBody{
		OK:              true,
		ActorID:         actor.ID,
		DisplayName:     actor.DisplayName,
		Points:          st.Points,
		DailyUsed:       st.DailyUsed,
		AllowedPixels:   st.DailyAllowance,
		CooldownSeconds: int(math.Ceil(st.CooldownRemaining.Seconds())),
		PlacedToday:     placed,
	}}, nil
}
