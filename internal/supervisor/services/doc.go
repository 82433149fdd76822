// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package services adapts catalogd components without a Serve loop to the
suture v4 service model.

Components that already implement suture.Service register directly: the
pass manager (sync.Manager), the websocket hub and the badger GC loop
(kvstore.Store). This package covers the rest:

  - HTTPServerService runs the admin API server and shuts it down
    gracefully when the tree stops. It builds a new *http.Server on every
    restart.
  - CloserService releases a resource, such as the event bus, when the
    tree stops.

Each wrapper returns ctx.Err() on a requested shutdown and a wrapped error
on failure, which suture treats as a restart signal.
*/
package services
