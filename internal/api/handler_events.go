package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/placeboard/placeboard/internal/events"
)

type CurrentEventBody struct {
	OK    bool          `json:"ok" doc:"Always true"`
	Event *events.Event `json:"event" doc:"Active bonus event, null outside any window"`
}

type CurrentEventOutput struct {
	Body CurrentEventBody
}

// EventHandler exposes the bonus-event calendar.
type EventHandler struct {
	calendar *events.Calendar
}

func NewEventHandler(calendar *events.Calendar) *EventHandler {
	return &EventHandler{calendar: calendar}
}

func registerEventRoutes(api huma.API, h *EventHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-current-event",
		Method:      http.MethodGet,
		Path:        "/v1/events/current",
		Summary:     "Get the currently active bonus event",
		Tags:        []string{"events"},
	}, h.Current)
}

func (h *EventHandler) Current(ctx context.Context, _ *struct{}) (*CurrentEventOutput, error) {
	return &CurrentEventOutput{Body: CurrentEventBody{
		OK:    true,
		Event: h.calendar.Current(time.Now()),
	}}, nil
}
