// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"time"
)

// CatalogStats counts the entities in the canonical store.
type CatalogStats struct {
	Movies       int        `json:"movies"`
	Shows        int        `json:"shows"`
	Seasons      int        `json:"seasons"`
	Episodes     int        `json:"episodes"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
}

// HealthStatus is the health check response.
type HealthStatus struct {
	Status            string     `json:"status"`
	Version           string     `json:"version"`
	StorageBackend    string     `json:"storage_backend"`
	DatabaseConnected bool       `json:"database_connected"`
	ServersEnabled    int        `json:"servers_enabled"`
	LastSyncTime      *time.Time `json:"last_sync_time,omitempty"`
	Uptime            float64    `json:"uptime_seconds"`
}
