// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/catalogd/internal/models"
)

// Health handles health check requests
//
// @Summary Get system health status
// @Description Returns repository connectivity, the storage backend, the number of enabled servers, the last completed pass and uptime
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.HealthStatus}
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dbConnected := h.repo != nil && h.repo.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	respondSuccess(w, http.StatusOK, models.HealthStatus{
		Status:            status,
		Version:           h.version,
		StorageBackend:    h.storageBackend,
		DatabaseConnected: dbConnected,
		ServersEnabled:    h.serversEnabled,
		LastSyncTime:      h.lastSyncTime(),
		Uptime:            time.Since(h.startTime).Seconds(),
	}, start)
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
//
// @Summary Liveness probe
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 503 until the repository answers a ping.
//
// @Summary Readiness probe
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse
// @Failure 503 {object} models.APIResponse
// @Router /health/ready [get]
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Repository is not configured", nil)
		return
	}
	if err := h.repo.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Repository is unreachable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"ready":        true,
		"sync_running": h.sync != nil && h.sync.Running(),
	}, start)
}
