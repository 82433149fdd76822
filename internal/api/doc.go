// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package api serves the catalogd admin HTTP API using the Chi router.

Routes:

	GET  /health                          health summary (always 200, status "healthy" or "degraded")
	GET  /health/live                     liveness probe
	GET  /health/ready                    readiness probe (503 while the repository is unreachable)
	GET  /metrics                         Prometheus exposition
	GET  /api/v1/stats                    movie, show, season and episode counts
	GET  /api/v1/servers                  configured servers and their last pass outcome
	POST /api/v1/sync                     start a pass (202), or ?wait=true to block for the result
	GET  /api/v1/sync/status              manager state and the last pass result
	GET  /api/v1/catalog/{movie|tv}/{key} one canonical document
	GET  /api/v1/ws                       websocket feed of lifecycle events

Every JSON body uses the models.APIResponse envelope. Errors carry a
machine-readable code: VALIDATION_ERROR, DATABASE_ERROR, NOT_FOUND,
SYNC_IN_PROGRESS, SYNC_ERROR, RATE_LIMIT_EXCEEDED or NOT_READY.

Middleware, outermost first: request ID with logging context, real IP,
panic recovery, request logging and CORS (go-chi/cors) on every route; the
/api/v1 group adds per-IP rate limiting (go-chi/httprate), security headers
and Prometheus request metrics labelled by route pattern.

Usage:

	mw := api.NewChiMiddlewareFromConfig(cfg.Server.CORSOrigins, cfg.Server.RateLimitRequests, cfg.Server.RateLimitWindow)
	h := api.NewHandler(ctx, api.HandlerDeps{Repository: repo, Sync: manager, WebSocket: wsHandler})
	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: api.NewRouter(h, mw).SetupChi()}
*/
package api
