// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package metrics provides Prometheus metrics collection and export for observability.

All metrics are registered on the default registry through promauto and exposed
by the admin API at /metrics:

	curl http://localhost:8088/metrics

# Available Metrics

Sync:
  - sync_results_total{operation,status,server}: entity operation outcomes
  - sync_field_changes_total{operation,server}: field writes applied
  - sync_batch_duration_seconds{server,media_type}: SyncEntities latency
  - sync_pass_duration_seconds, sync_passes_total{result}
  - snapshot_load_errors_total{server}, snapshot_entities{server,media_type}

Orphans:
  - orphans_removed_total{kind}
  - orphan_cleanup_skipped_total

Repository:
  - repository_operation_duration_seconds{backend,operation}
  - repository_operation_errors_total{backend,operation}

Outbound requests:
  - fetch_requests_total{server,kind,result}, fetch_duration_seconds{server,kind}
  - circuit_breaker_state{name} (0=closed, 1=half-open, 2=open)
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

Caches, API and WebSocket:
  - cache_hits_total{cache_type}, cache_misses_total{cache_type}
  - api_requests_total{method,endpoint,status}, api_request_duration_seconds
  - websocket_connections, websocket_messages_sent_total

# Usage

Components record through the helper functions rather than touching the
vectors directly:

	start := time.Now()
	err := repo.UpsertMovie(ctx, key, movie)
	metrics.RecordRepositoryOperation("duckdb", "upsert_movie", time.Since(start), err)

# Alerting Examples

	groups:
	  - name: catalogd
	    rules:
	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state == 2
	        for: 5m
	      - alert: SyncFailuresHigh
	        expr: rate(sync_results_total{status="failed"}[15m]) > 0.1
	        for: 15m
*/
package metrics
