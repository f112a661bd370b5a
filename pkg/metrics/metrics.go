package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts TTL cache reads by result (hit|miss|expired).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavtrack_cache_lookups_total",
			Help: "Total number of TTL cache lookups",
		},
		[]string{"result"},
	)

	// CacheEntries tracks the number of live cache entries.
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavtrack_cache_entries",
			Help: "Number of entries held by the TTL cache",
		},
	)

	// CacheInvalidations counts prefix invalidations by prefix.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavtrack_cache_invalidations_total",
			Help: "Total number of prefix invalidations",
		},
		[]string{"prefix"},
	)

	// OutboxDepth tracks pending (not dead-lettered) outbox entries.
	OutboxDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavtrack_outbox_depth",
			Help: "Number of outbox entries awaiting replay",
		},
	)

	// OutboxReplays counts replayed entries by record kind and result (applied|failed|dead_lettered).
	OutboxReplays = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavtrack_outbox_replays_total",
			Help: "Total number of outbox replays",
		},
		[]string{"kind", "result"},
	)

	// DrainDuration measures how long each drain pass runs, labelled by trigger.
	DrainDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wavtrack_outbox_drain_duration_seconds",
			Help:    "Outbox drain duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	// Online is 1 while the remote store is reachable.
	Online = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavtrack_remote_online",
			Help: "Whether the remote store is reachable (1) or not (0)",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wavtrack_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
