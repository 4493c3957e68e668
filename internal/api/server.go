package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/placeboard/placeboard/internal/archive"
	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/events"
	"github.com/placeboard/placeboard/internal/hub"
	"github.com/placeboard/placeboard/internal/identity"
	"github.com/placeboard/placeboard/internal/metrics"
	"github.com/placeboard/placeboard/internal/quota"
	"github.com/placeboard/placeboard/internal/snapshot"
	"github.com/placeboard/placeboard/internal/storage"
)

// Deps are the constructed resources the server routes to. Everything is
// injected; no handler reaches for process-global state.
type Deps struct {
	Logger    *slog.Logger
	Bounds    canvas.Bounds
	Pipeline  Placer
	Snapshots *snapshot.Service
	Hub       *hub.Hub
	Provider  identity.Provider
	Tracker   quota.Tracker
	Store     storage.PlacementStore
	Calendar  *events.Calendar
	Archiver  *archive.Archiver
	DB        Pinger
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(deps Deps) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(deps.Logger))
	mux.Use(Recovery(deps.Logger))
	mux.Use(metrics.Metrics)

	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeMethod, nil)
	})

	// Canvas wire protocol: hand-written handlers with the fixed response
	// shapes clients and bots depend on.
	placeHandler := NewPlaceHandler(deps.Pipeline, deps.Bounds)
	snapshotHandler := NewSnapshotHandler(deps.Snapshots, deps.Bounds, deps.Logger)
	healthHandler := NewHealthHandler(deps.DB, deps.Logger)

	mux.Route("/v1", func(r chi.Router) {
		r.Post("/place", placeHandler.Place)
		r.Get("/canvas/snapshot", snapshotHandler.Snapshot)
		r.Get("/canvas/live", deps.Hub.ServeHTTP)
	})

	// Typed operations API for everything without a frozen wire format.
	humaAPI := humachi.New(mux, huma.DefaultConfig("placeboard", "1.0.0"))
	registerActorRoutes(humaAPI, NewActorHandler(deps.Provider, deps.Tracker, deps.Store, deps.Logger))
	registerEventRoutes(humaAPI, NewEventHandler(deps.Calendar))
	registerArchiveRoutes(humaAPI, NewArchiveHandler(deps.Archiver, deps.Logger))

	mux.Get("/livez", healthHandler.Livez)
	mux.Get("/readyz", healthHandler.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
