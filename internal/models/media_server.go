// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultSnapshotPath is where a source server serves its media list.
const DefaultSnapshotPath = "/api/media-list"

// ServerConfig describes one source server. Lower Priority values are more
// authoritative.
type ServerConfig struct {
	ID           string        `koanf:"id" json:"id" validate:"required"`
	Priority     int           `koanf:"priority" json:"priority" validate:"gte=0"`
	BaseURL      string        `koanf:"base_url" json:"baseUrl" validate:"required,url"`
	APIURL       string        `koanf:"api_url" json:"apiUrl,omitempty" validate:"omitempty,url"`
	Prefix       string        `koanf:"prefix" json:"prefix,omitempty"`
	Enabled      bool          `koanf:"enabled" json:"enabled"`
	Timeout      time.Duration `koanf:"timeout" json:"timeout,omitempty" validate:"gte=0"`
	SnapshotPath string        `koanf:"snapshot_path" json:"snapshotPath,omitempty"`
}

// APIBase returns the URL the snapshot endpoint hangs off.
func (s ServerConfig) APIBase() string {
	if s.APIURL != "" {
		return strings.TrimRight(s.APIURL, "/")
	}
	return strings.TrimRight(s.BaseURL, "/")
}

// SnapshotURL returns the absolute URL of the server's media list.
func (s ServerConfig) SnapshotURL() string {
	p := s.SnapshotPath
	if p == "" {
		p = DefaultSnapshotPath
	}
	return s.APIBase() + "/" + strings.TrimLeft(p, "/")
}

// ResolveURL turns a snapshot-relative asset path into an absolute URL under
// BaseURL and Prefix. Absolute URLs and empty paths are returned unchanged.
func (s ServerConfig) ResolveURL(rel string) string {
	if rel == "" {
		return ""
	}
	if u, err := url.Parse(rel); err == nil && u.IsAbs() {
		return rel
	}
	joined := path.Join("/", s.Prefix, rel)
	if strings.HasSuffix(rel, "/") && !strings.HasSuffix(joined, "/") {
		joined += "/"
	}
	return strings.TrimRight(s.BaseURL, "/") + joined
}

// ServerStatus is the read-only view of a configured server served by the admin API.
type ServerStatus struct {
	ID             string     `json:"id"`
	Priority       int        `json:"priority"`
	URL            string     `json:"url"` // sanitized for display
	Enabled        bool       `json:"enabled"`
	Status         string     `json:"status"` // idle, syncing, error, disabled
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus string     `json:"last_sync_status,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	LastErrorAt    *time.Time `json:"last_error_at,omitempty"`
	MoviesSeen     int        `json:"movies_seen"`
	ShowsSeen      int        `json:"shows_seen"`
}

// ServerListResponse is the response for listing configured servers.
type ServerListResponse struct {
	Servers     []ServerStatus `json:"servers"`
	TotalCount  int            `json:"total_count"`
	Syncing     int            `json:"syncing_count"`
	Error       int            `json:"error_count"`
	LastChecked time.Time      `json:"last_checked"`
}

// SyncTriggerResponse is the response from a manual sync trigger.
type SyncTriggerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PassID  string `json:"pass_id,omitempty"`
}
