package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlacementsTotal counts placement submissions by outcome code
	// ("accepted", "cooldown", "daily-limit-reached", ...).
	PlacementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "placeboard",
			Name:      "placements_total",
			Help:      "Placement submissions by outcome.",
		},
		[]string{"outcome"},
	)

	// PublishFailures counts accepted placements whose bus publish failed.
	// Each one is an under-propagated update until viewers reconcile.
	PublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "placeboard",
			Name:      "publish_failures_total",
			Help:      "Bus publish failures after a successful persist.",
		},
	)

	// SnapshotCacheHits and SnapshotCacheMisses track full-snapshot reads.
	SnapshotCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "placeboard",
			Name:      "snapshot_cache_hits_total",
			Help:      "Full snapshot reads served from cache.",
		},
	)
	SnapshotCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "placeboard",
			Name:      "snapshot_cache_misses_total",
			Help:      "Full snapshot reads recomputed from the store.",
		},
	)

	// LiveViewers gauges currently connected websocket subscribers.
	LiveViewers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "placeboard",
			Name:      "live_viewers",
			Help:      "Currently connected live stream viewers.",
		},
	)

	// BusEventsDropped counts events dropped for slow in-process subscribers.
	BusEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "placeboard",
			Name:      "bus_events_dropped_total",
			Help:      "Events dropped because a subscriber buffer was full.",
		},
	)

	// ArchiveRuns counts daily archive attempts by status.
	ArchiveRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "placeboard",
			Name:      "archive_runs_total",
			Help:      "Daily canvas archive attempts.",
		},
		[]string{"status"},
	)
)
