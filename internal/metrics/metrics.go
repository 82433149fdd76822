// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Repository operation latency (DuckDB, Badger, memory)
// - Sync results, batches and passes
// - Orphan cleanup
// - Outbound fetch, probe and circuit breaker state
// - Cache efficiency
// - Admin API and WebSocket feed

var (
	// Repository Metrics
	RepositoryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repository_operation_duration_seconds",
			Help:    "Duration of canonical store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	RepositoryOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_operation_errors_total",
			Help: "Total number of failed canonical store operations",
		},
		[]string{"backend", "operation"},
	)

	// Sync Metrics
	SyncResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_results_total",
			Help: "Total number of entity operation results by outcome",
		},
		[]string{"operation", "status", "server"},
	)

	SyncFieldChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_field_changes_total",
			Help: "Total number of field writes applied to the canonical store",
		},
		[]string{"operation", "server"},
	)

	SyncBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_batch_duration_seconds",
			Help:    "Duration of SyncEntities batches in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"server", "media_type"},
	)

	SyncBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_batch_size",
			Help:    "Number of entities per SyncEntities batch",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	SyncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sync_pass_duration_seconds",
			Help:    "Duration of full reconciliation passes in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	SyncPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_passes_total",
			Help: "Total number of reconciliation passes by outcome",
		},
		[]string{"result"}, // "success", "partial", "error"
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last pass that loaded every snapshot",
		},
	)

	SnapshotLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_load_errors_total",
			Help: "Total number of failed server snapshot loads",
		},
		[]string{"server"},
	)

	SnapshotEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snapshot_entities",
			Help: "Entities listed in the latest snapshot of each server",
		},
		[]string{"server", "media_type"},
	)

	// Orphan Metrics
	OrphansRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orphans_removed_total",
			Help: "Total number of unbacked entities removed from the catalog",
		},
		[]string{"kind"}, // "movie", "show", "season", "episode"
	)

	OrphanCleanupSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orphan_cleanup_skipped_total",
			Help: "Passes whose orphan cleanup was skipped because a snapshot failed to load",
		},
	)

	// Outbound Fetch Metrics
	FetchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetch_requests_total",
			Help: "Total number of outbound requests to source servers",
		},
		[]string{"server", "kind", "result"}, // kind: "snapshot", "metadata", "text", "probe"
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fetch_duration_seconds",
			Help:    "Duration of outbound requests to source servers",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"server", "kind"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "metadata", "placeholder", "probe"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_invalidations_total",
			Help: "Total number of cache entries invalidated",
		},
		[]string{"cache_type"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of admin API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Admin API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate-limited admin API requests",
		},
		[]string{"endpoint"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of lifecycle events published",
		},
		[]string{"type"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_errors_total",
			Help: "Total number of lifecycle events that failed to publish",
		},
		[]string{"type"},
	)

	NATSMessagesForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_forwarded_total",
			Help: "Total number of lifecycle events forwarded to NATS",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordRepositoryOperation records a canonical store operation metric
func RecordRepositoryOperation(backend, operation string, duration time.Duration, err error) {
	RepositoryOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		RepositoryOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordSyncResult records the outcome of one entity operation
func RecordSyncResult(operation, status, server string, changes int) {
	SyncResultsTotal.WithLabelValues(operation, status, server).Inc()
	if changes > 0 {
		SyncFieldChanges.WithLabelValues(operation, server).Add(float64(changes))
	}
}

// RecordSyncBatch records a settled SyncEntities batch
func RecordSyncBatch(server, mediaType string, size int, duration time.Duration) {
	SyncBatchDuration.WithLabelValues(server, mediaType).Observe(duration.Seconds())
	SyncBatchSize.Observe(float64(size))
}

// RecordSyncPass records a reconciliation pass. A pass is partial when some
// snapshots failed to load.
func RecordSyncPass(duration time.Duration, partial bool, err error) {
	SyncPassDuration.Observe(duration.Seconds())
	switch {
	case err != nil:
		SyncPassesTotal.WithLabelValues("error").Inc()
	case partial:
		SyncPassesTotal.WithLabelValues("partial").Inc()
	default:
		SyncPassesTotal.WithLabelValues("success").Inc()
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordOrphansRemoved records removed orphans of one kind
func RecordOrphansRemoved(kind string, count int) {
	if count > 0 {
		OrphansRemoved.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordFetch records an outbound request to a source server
func RecordFetch(server, kind string, duration time.Duration, err error) {
	FetchDuration.WithLabelValues(server, kind).Observe(duration.Seconds())
	result := "success"
	if err != nil {
		result = "error"
	}
	FetchRequests.WithLabelValues(server, kind, result).Inc()
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordEventPublished records a lifecycle event publish attempt
func RecordEventPublished(eventType string, err error) {
	if err != nil {
		EventPublishErrors.WithLabelValues(eventType).Inc()
		return
	}
	EventsPublished.WithLabelValues(eventType).Inc()
}
