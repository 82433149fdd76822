// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/repository"
	catsync "github.com/tomtom215/catalogd/internal/sync"
)

// SyncManager is the part of *sync.Manager the handlers use.
type SyncManager interface {
	TriggerSync(ctx context.Context) (*catsync.PassResult, error)
	Syncing() bool
	Running() bool
	LastSyncTime() time.Time
	LastPass() *catsync.PassResult
	ServerStatuses() []models.ServerStatus
}

// HandlerDeps are the collaborators of a Handler.
type HandlerDeps struct {
	Repository     repository.Repository
	Sync           SyncManager
	WebSocket      http.Handler // nil disables /api/v1/ws
	StorageBackend string
	ServersEnabled int
	Version        string
}

// Handler serves the admin API.
type Handler struct {
	repo           repository.Repository
	sync           SyncManager
	ws             http.Handler
	storageBackend string
	serversEnabled int
	version        string
	startTime      time.Time

	// passCtx is the parent of passes started by an asynchronous trigger,
	// which must outlive the request.
	passCtx context.Context
}

// NewHandler creates the admin API handler. ctx bounds passes started in the
// background by POST /api/v1/sync.
func NewHandler(ctx context.Context, deps HandlerDeps) *Handler {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		repo:           deps.Repository,
		sync:           deps.Sync,
		ws:             deps.WebSocket,
		storageBackend: deps.StorageBackend,
		serversEnabled: deps.ServersEnabled,
		version:        version,
		startTime:      time.Now(),
		passCtx:        ctx,
	}
}

// WebSocket upgrades the connection and hands it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.ws == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Live event feed is disabled", nil)
		return
	}
	h.ws.ServeHTTP(w, r)
}

func (h *Handler) lastSyncTime() *time.Time {
	if h.sync == nil {
		return nil
	}
	t := h.sync.LastSyncTime()
	if t.IsZero() {
		return nil
	}
	return &t
}
