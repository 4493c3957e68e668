package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/identity"
	"github.com/placeboard/placeboard/internal/pipeline"
	"github.com/placeboard/placeboard/internal/quota"
)

// Placer is satisfied by *pipeline.Service.
type Placer interface {
	Place(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// PlaceHandler accepts pixel placements. The request and error body shapes
// are the stable wire protocol consumed by the canvas client and bots, so
// this handler writes its JSON directly rather than going through the
// typed operations API.
type PlaceHandler struct {
	pipeline Placer
	bounds   canvas.Bounds
}

func NewPlaceHandler(p Placer, bounds canvas.Bounds) *PlaceHandler {
	return &PlaceHandler{pipeline: p, bounds: bounds}
}

type placeBody struct {
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Color *string  `json:"color"`
}

// credentialFrom extracts out-of-band credentials. The Authorization bearer
// value may be either a session token or the shared bot key; the
// authenticator tries the bot key first.
func credentialFrom(r *http.Request) identity.Credential {
	cred := identity.Credential{
		Token:     r.Header.Get("X-Session-Token"),
		SystemKey: r.Header.Get("X-Bot-Key"),
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		if cred.Token == "" {
			cred.Token = raw
		}
		if cred.SystemKey == "" {
			cred.SystemKey = raw
		}
	}
	return cred
}

func (h *PlaceHandler) Place(w http.ResponseWriter, r *http.Request) {
	var body placeBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil || body.X == nil || body.Y == nil || body.Color == nil {
		writeError(w, http.StatusBadRequest, codeInvalidPayload, nil)
		return
	}
	// Coordinates must be integers; 5.5 is a bad payload, not a rounding job.
	if *body.X != math.Trunc(*body.X) || *body.Y != math.Trunc(*body.Y) {
		writeError(w, http.StatusBadRequest, codeInvalidPayload, nil)
		return
	}

	req := pipeline.Request{
		X:          int(*body.X),
		Y:          int(*body.Y),
		Color:      *body.Color,
		Credential: credentialFrom(r),
	}

	if _, err := h.pipeline.Place(r.Context(), req); err != nil {
		h.writePlaceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "placed": 1})
}

func (h *PlaceHandler) writePlaceError(w http.ResponseWriter, err error) {
	var cooldown *quota.CooldownError
	var limit *quota.DailyLimitError
	switch {
	case errors.Is(err, identity.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, nil)
	case errors.Is(err, canvas.ErrInvalidColor):
		writeError(w, http.StatusBadRequest, codeInvalidColor, nil)
	case errors.Is(err, canvas.ErrOutOfBounds):
		writeError(w, http.StatusBadRequest, codeOutOfBounds, map[string]any{
			"cols": h.bounds.Cols(),
			"rows": h.bounds.Rows(),
		})
	case errors.As(err, &cooldown):
		writeError(w, http.StatusTooManyRequests, codeCooldown, map[string]any{
			"remainingSeconds": int(math.Ceil(cooldown.RetryAfter.Seconds())),
		})
	case errors.As(err, &limit):
		writeError(w, http.StatusTooManyRequests, codeDailyLimit, map[string]any{
			"used":    limit.Used,
			"allowed": limit.Allowed,
		})
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, nil)
	}
}
