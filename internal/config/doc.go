// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package config provides centralized configuration management for Catalogd.

Configuration is layered with Koanf v2. Built-in defaults are loaded first,
then an optional YAML file, then environment variables. The merged result is
validated with go-playground/validator struct tags plus a few cross-field
rules before anything is started.

# Configuration Sources

The config file is the first of these that exists:
  - the path in CONFIG_PATH
  - config.yaml or config.yml in the working directory
  - /etc/catalogd/config.yaml or /etc/catalogd/config.yml

Environment variables use flat legacy-style names that are mapped to config
paths by an explicit table. Unknown variables are ignored.

# Configuration Structure

  - servers: source servers (id, priority, base_url, api_url, prefix, enabled, timeout)
  - sync: pass interval, entity concurrency, mode, operations and cleanup toggles
  - storage: repository backend plus DuckDB and BadgerDB settings
  - cache: in-process cache type, TTL and capacity
  - probe: asset reachability probe concurrency and cache TTL
  - fetch: outbound timeout, rate limits, retries and circuit breaker
  - events: lifecycle bus buffering and the optional NATS forwarder
  - server: admin API address, timeout, CORS and rate limiting
  - logging: level, format and caller reporting

# Environment Variables

Sync:
  - SYNC_INTERVAL: time between passes, 0 disables the timer (default: 15m)
  - SYNC_MODE: batch or sequential (default: batch)
  - SYNC_CONCURRENCY: entities in flight per batch (default: 5)
  - SYNC_OPERATIONS: comma-separated subset of metadata,assets,content
  - SYNC_HASH_SHORT_CIRCUIT, SYNC_ORPHAN_CLEANUP, SYNC_PROBE_VERIFY, SYNC_RUN_ON_START

Servers:
  - SERVERS: id=url pairs, used only when the file defines no servers

Storage:
  - STORAGE_BACKEND, DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
  - BADGER_PATH, BADGER_IN_MEMORY, BADGER_SYNC_WRITES, BADGER_GC_INTERVAL, PLACEHOLDER_TTL

Events:
  - EVENTS_BUFFER_SIZE, EVENTS_SYNCHRONOUS
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT_PREFIX, NATS_JETSTREAM

HTTP and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, CORS_ORIGINS
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Example

	servers:
	  - id: primary
	    priority: 0
	    base_url: http://media-1:8080
	  - id: mirror
	    priority: 1
	    base_url: http://media-2:8080
	    prefix: /mirror
	sync:
	  interval: 30m
	  concurrency: 8
	storage:
	  backend: duckdb
	  duckdb:
	    path: /data/catalogd.duckdb

Servers without an explicit enabled key are enabled.
*/
package config
