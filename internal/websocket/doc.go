// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package websocket streams sync lifecycle events to connected clients.

Progress displays connect to the admin API's websocket endpoint and receive
every event the sync orchestrator publishes on the event bus, plus a summary
when a full reconciliation pass ends. It uses gorilla/websocket with a
hub-client architecture.

Key Components:

  - Hub: owns the client set and broadcasts messages; runs as a suture service
  - Client: one connection with a read and a write goroutine
  - Handler: http.Handler that upgrades requests and registers clients

Message Types:

  - sync_event: a lifecycle event (started, progress, error, complete)
  - pass_completed: summary of a finished reconciliation pass
  - stats_update: catalog counts after a pass
  - ping/pong: client keepalive

Wiring:

	hub := websocket.NewHub()
	unsubscribe, err := hub.Attach(bus)
	router.Handle("/api/v1/ws", websocket.NewHandler(hub, cfg.Server.CORSOrigins))
	supervisor.Add(hub)

Slow clients whose send buffer fills are disconnected rather than blocking
the broadcast loop. Broadcasts visit clients in connection order.
*/
package websocket
