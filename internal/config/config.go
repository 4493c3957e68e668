package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseURL string
	Port        string
	LogLevel    string

	// Canvas geometry; the drawable grid is Width/Grid x Height/Grid cells.
	CanvasWidth  int
	CanvasHeight int
	CanvasGrid   int

	SnapshotCacheTTL time.Duration
	QueryTimeout     time.Duration

	// Quota throttles. A zero PlaceCooldown disables the cooldown check.
	PlaceCooldown      time.Duration
	DailyMinPixels     int
	PointsPerPixel     int
	PointsPerPlacement int

	// BotAPIKey is the shared system credential. Empty disables the bypass.
	BotAPIKey string

	EventsConfigPath string
	ArchiveInterval  time.Duration

	BusBuffer          int
	BreakerMaxFailures int
	BreakerCooldown    time.Duration
}

func Load() Config {
	return Config{
		DatabaseURL:        getEnvRequired("DATABASE_URL"),
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CanvasWidth:        getEnvInt("CANVAS_WIDTH", 1600),
		CanvasHeight:       getEnvInt("CANVAS_HEIGHT", 1000),
		CanvasGrid:         getEnvInt("CANVAS_GRID", 20),
		SnapshotCacheTTL:   getEnvDuration("SNAPSHOT_CACHE_TTL", 10*time.Second),
		QueryTimeout:       getEnvDuration("QUERY_TIMEOUT", 5*time.Second),
		PlaceCooldown:      getEnvDuration("PLACE_COOLDOWN", 0),
		DailyMinPixels:     getEnvInt("DAILY_MIN_PIXELS", 10),
		PointsPerPixel:     getEnvInt("POINTS_PER_PIXEL", 5),
		PointsPerPlacement: getEnvInt("POINTS_PER_PLACEMENT", 1),
		BotAPIKey:          getEnv("BOT_API_KEY", ""),
		EventsConfigPath:   getEnv("EVENTS_CONFIG", ""),
		ArchiveInterval:    getEnvDuration("ARCHIVE_INTERVAL", 24*time.Hour),
		BusBuffer:          getEnvInt("BUS_BUFFER", 256),
		BreakerMaxFailures: getEnvInt("BREAKER_MAX_FAILURES", 5),
		BreakerCooldown:    getEnvDuration("BREAKER_COOLDOWN", 10*time.Second),
	}
}

func getEnvRequired(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic("required environment variable " + key + " is not set")
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return n
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "error", err)
			return fallback
		}
		return d
	}
	return fallback
}
