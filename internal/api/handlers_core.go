// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/repository"
)

// CatalogRequest addresses one top-level catalog document.
type CatalogRequest struct {
	MediaType string `validate:"required,oneof=movie tv"`
	Key       string `validate:"required,max=1024"`
}

// Stats returns entity counts for the canonical store.
//
// @Summary Catalog statistics
// @Description Counts movies, shows, seasons and episodes, plus the time of the last completed pass
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.CatalogStats}
// @Failure 500 {object} models.APIResponse
// @Router /api/v1/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read catalog statistics", err)
		return
	}
	if last := h.lastSyncTime(); last != nil {
		stats.LastSyncTime = last
	}
	respondSuccess(w, http.StatusOK, stats, start)
}

// Servers lists every configured server with its last pass outcome.
//
// @Summary Configured servers
// @Tags Core
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.ServerListResponse}
// @Router /api/v1/servers [get]
func (h *Handler) Servers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := models.ServerListResponse{
		Servers:     []models.ServerStatus{},
		LastChecked: time.Now().UTC(),
	}
	if h.sync != nil {
		resp.Servers = h.sync.ServerStatuses()
	}
	resp.TotalCount = len(resp.Servers)
	for _, s := range resp.Servers {
		switch s.Status {
		case "syncing":
			resp.Syncing++
		case "error":
			resp.Error++
		}
	}
	respondSuccess(w, http.StatusOK, resp, start)
}

// CatalogEntry returns one canonical movie or show document.
//
// @Summary Catalog document
// @Tags Core
// @Produce json
// @Param mediaType path string true "movie or tv"
// @Param key path string true "entity key"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /api/v1/catalog/{mediaType}/{key} [get]
func (h *Handler) CatalogEntry(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		key = chi.URLParam(r, "key")
	}
	req := CatalogRequest{
		MediaType: chi.URLParam(r, "mediaType"),
		Key:       key,
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	var doc any
	switch models.MediaType(req.MediaType) {
	case models.MediaTypeMovie:
		doc, err = h.repo.FindMovie(r.Context(), req.Key)
	default:
		doc, err = h.repo.FindShow(r.Context(), req.Key)
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "No catalog entry for "+req.Key, nil)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to read catalog entry", err)
	default:
		respondSuccess(w, http.StatusOK, doc, start)
	}
}
