// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package main is the entry point for the catalogd server.
//
// catalogd reconciles the media catalogs of several media servers into one
// canonical catalog. Every pass loads each enabled server's snapshot, merges
// movies and shows by server priority, and removes entries no server backs
// any longer.
//
// # Startup Order
//
//  1. Configuration: defaults, config file, then environment (koanf v2)
//  2. Storage: DuckDB, badger or memory catalog, plus the placeholder store
//  3. Event bus: in-process watermill bus, optionally forwarded to NATS
//  4. Upstream access: rate-limited fetch client with circuit breakers
//  5. Pass manager: orchestrator, strategies and orphan cleanup
//  6. WebSocket hub: live lifecycle events for progress displays
//  7. Admin API: health, stats, servers, sync trigger, Prometheus metrics
//  8. Supervisor tree: data, messaging and api layers under suture
//
// # Configuration
//
// See package config. The most common settings:
//
//	export SERVERS="nas=http://nas:8080,cloud=https://media.example.com"
//	export SYNC_INTERVAL=15m
//	export STORAGE_BACKEND=duckdb
//	export DUCKDB_PATH=/data/catalogd.duckdb
//	export BADGER_PATH=/data/catalogd-kv
//	./catalogd
//
// # Build Tags
//
//	go build -tags nats ./cmd/server   # forward lifecycle events to NATS
//
// # Signal Handling
//
// SIGINT and SIGTERM stop the supervisor tree: the HTTP server drains for up
// to 10s, a running pass finishes its in-flight entities, and the storage is
// closed last. Editing the config file changes the log level without a
// restart.
package main
