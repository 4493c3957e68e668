package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/placeboard/placeboard/internal/api"
	"github.com/placeboard/placeboard/internal/archive"
	"github.com/placeboard/placeboard/internal/bus"
	"github.com/placeboard/placeboard/internal/cache"
	"github.com/placeboard/placeboard/internal/canvas"
	"github.com/placeboard/placeboard/internal/circuitbreaker"
	"github.com/placeboard/placeboard/internal/config"
	"github.com/placeboard/placeboard/internal/events"
	"github.com/placeboard/placeboard/internal/hub"
	"github.com/placeboard/placeboard/internal/identity"
	"github.com/placeboard/placeboard/internal/metrics"
	"github.com/placeboard/placeboard/internal/pipeline"
	"github.com/placeboard/placeboard/internal/quota"
	"github.com/placeboard/placeboard/internal/snapshot"
	"github.com/placeboard/placeboard/internal/storage"
)

func main() {
	cfg := config.Load()

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bounds := canvas.Bounds{Width: cfg.CanvasWidth, Height: cfg.CanvasHeight, CellSize: cfg.CanvasGrid}
	logger.Info("canvas configured", "cols", bounds.Cols(), "rows", bounds.Rows(), "cell_size", bounds.CellSize)

	// Connect to PostgreSQL
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	if err := storage.RunMigrations(ctx, pool); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations complete")

	prometheus.MustRegister(metrics.NewPoolCollector(pool))

	calendar, err := events.Load(cfg.EventsConfigPath)
	if err != nil {
		logger.Error("failed to load events config", "path", cfg.EventsConfigPath, "error", err)
		os.Exit(1)
	}

	store := storage.NewPostgresStore(pool, cfg.QueryTimeout)
	tracker := quota.NewPostgresTracker(pool, quota.Config{
		MinDailyPixels: cfg.DailyMinPixels,
		PointsPerPixel: cfg.PointsPerPixel,
		Cooldown:       cfg.PlaceCooldown,
	})

	snapshotCache := cache.NewSnapshot[[]canvas.Cell]()
	breaker := circuitbreaker.New(cfg.BreakerMaxFailures, cfg.BreakerCooldown)
	snapshots := snapshot.NewService(store, snapshotCache, breaker, cfg.SnapshotCacheTTL)

	// The bus carries accepted placements across server instances; the
	// broker fans them out to this instance's viewers and to the cache
	// invalidation loop below.
	broker := bus.NewBroker(cfg.BusBuffer, metrics.BusEventsDropped.Inc)
	pgBus := bus.NewPgBus(pool, store, broker, logger)
	go pgBus.Listen(ctx)

	// Invalidate the local snapshot cache on every observed placement so a
	// write accepted by another instance bounds this instance's staleness.
	go func() {
		eventsCh, unsubscribe := broker.Subscribe()
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-eventsCh:
				if !ok {
					return
				}
				snapshots.Invalidate()
			}
		}
	}()

	auth := identity.NewAuthenticator(identity.NewPostgresProvider(pool), cfg.BotAPIKey)
	accept := pipeline.NewService(bounds, auth, tracker, store, snapshots, pgBus, calendar, cfg.PointsPerPlacement, logger)

	archiver := archive.New(store, pool, bounds, cfg.ArchiveInterval, logger)
	go archiver.Run(ctx)
	logger.Info("archiver started", "interval", cfg.ArchiveInterval)

	viewerHub := hub.New(broker, logger)

	handler := api.NewServer(api.Deps{
		Logger:    logger,
		Bounds:    bounds,
		Pipeline:  accept,
		Snapshots: snapshots,
		Hub:       viewerHub,
		Provider:  identity.NewPostgresProvider(pool),
		Tracker:   tracker,
		Store:     store,
		Calendar:  calendar,
		Archiver:  archiver,
		DB:        pool,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down...")

	// Stop the bus listener, archiver, and cache invalidation loop.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
