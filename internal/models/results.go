// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"time"
)

// SyncStatus is the terminal state of one entity operation.
type SyncStatus string

const (
	StatusPending   SyncStatus = "pending"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
	StatusSkipped   SyncStatus = "skipped"
)

// Change is one field written during an operation.
type Change struct {
	EntityKey string `json:"entityKey"`
	Path      string `json:"path"`
	Old       any    `json:"old,omitempty"`
	New       any    `json:"new,omitempty"`
	ServerID  string `json:"serverId"`
}

// SyncResult is the outcome of one operation on one entity.
type SyncResult struct {
	Status    SyncStatus `json:"status"`
	EntityID  string     `json:"entityId"`
	MediaType MediaType  `json:"mediaType"`
	Operation Operation  `json:"operation"`
	ServerID  string     `json:"serverId"`
	Strategy  string     `json:"strategy,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Changes   []Change   `json:"changes,omitempty"`
	Errors    []string   `json:"errors,omitempty"`
}

// BatchSummary counts entities by their settled outcome.
type BatchSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// BatchResult is the settled outcome of SyncEntities.
//
// Results holds one entry per entity operation. Summary counts entities: an
// entity is Failed if any operation failed, Completed if any completed, and
// Skipped otherwise.
type BatchResult struct {
	ID        string        `json:"id"`
	ServerID  string        `json:"serverId"`
	MediaType MediaType     `json:"mediaType"`
	Results   []SyncResult  `json:"results"`
	Summary   BatchSummary  `json:"summary"`
	Duration  time.Duration `json:"duration"`
	Errors    []string      `json:"errors,omitempty"`
}

// EntityStatus folds the per-operation results of one entity into one status.
func EntityStatus(results []SyncResult) SyncStatus {
	status := StatusSkipped
	for _, r := range results {
		switch r.Status {
		case StatusFailed:
			return StatusFailed
		case StatusCompleted:
			status = StatusCompleted
		}
	}
	return status
}

// Add counts one entity's settled status.
func (s *BatchSummary) Add(status SyncStatus) {
	s.Total++
	switch status {
	case StatusCompleted:
		s.Completed++
	case StatusFailed:
		s.Failed++
	default:
		s.Skipped++
	}
}
