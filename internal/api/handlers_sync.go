// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/models"
	catsync "github.com/tomtom215/catalogd/internal/sync"
)

// SyncStatus is the response of GET /api/v1/sync/status.
type SyncStatus struct {
	Running      bool                `json:"running"`
	Syncing      bool                `json:"syncing"`
	LastSyncTime *time.Time          `json:"last_sync_time,omitempty"`
	LastPass     *catsync.PassResult `json:"last_pass,omitempty"`
}

// TriggerSync starts a reconciliation pass.
//
// The pass runs in the background and the handler answers 202. With
// ?wait=true the handler blocks and returns the pass result.
//
// @Summary Trigger a reconciliation pass
// @Tags Sync
// @Produce json
// @Param wait query bool false "block until the pass settles"
// @Success 200 {object} models.APIResponse
// @Success 202 {object} models.APIResponse{data=models.SyncTriggerResponse}
// @Failure 409 {object} models.APIResponse
// @Router /api/v1/sync [post]
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.sync == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Sync manager is not configured", nil)
		return
	}
	if h.sync.Syncing() {
		respondError(w, http.StatusConflict, "SYNC_IN_PROGRESS", "A reconciliation pass is already running", nil)
		return
	}

	if getBoolParam(r, "wait", false) {
		pass, err := h.sync.TriggerSync(r.Context())
		if err != nil {
			respondAPIError(w, http.StatusInternalServerError, &models.APIError{
				Code:    "SYNC_ERROR",
				Message: "Reconciliation pass failed",
				Details: passDetails(pass),
			}, err)
			return
		}
		respondSuccess(w, http.StatusOK, pass, start)
		return
	}

	ctx := logging.ContextWithCorrelationID(h.passCtx, logging.CorrelationIDFromContext(r.Context()))
	go func(ctx context.Context) {
		if _, err := h.sync.TriggerSync(ctx); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Manual sync failed")
		}
	}(ctx)

	respondSuccess(w, http.StatusAccepted, models.SyncTriggerResponse{
		Success: true,
		Message: "Reconciliation pass started",
	}, start)
}

// SyncStatus reports whether the manager runs and the last pass outcome.
//
// @Summary Sync status
// @Tags Sync
// @Produce json
// @Success 200 {object} models.APIResponse{data=SyncStatus}
// @Router /api/v1/sync/status [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var status SyncStatus
	if h.sync != nil {
		status = SyncStatus{
			Running:      h.sync.Running(),
			Syncing:      h.sync.Syncing(),
			LastSyncTime: h.lastSyncTime(),
			LastPass:     h.sync.LastPass(),
		}
	}
	respondSuccess(w, http.StatusOK, status, start)
}

func passDetails(pass *catsync.PassResult) map[string]any {
	if pass == nil {
		return nil
	}
	details := map[string]any{"pass_id": pass.ID}
	if len(pass.FailedServers) > 0 {
		details["failed_servers"] = pass.FailedServers
	}
	return details
}
