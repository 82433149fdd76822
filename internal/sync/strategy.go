// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package sync

import (
	"context"
	"sync"

	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/priority"
)

// Request is one operation on one entity.
type Request struct {
	// Entity is a *models.Movie or a *models.TVShow. Strategies mutate it in
	// place; the orchestrator rolls it back when Execute fails.
	Entity       models.Entity
	MediaType    models.MediaType
	Operation    models.Operation
	Server       models.ServerConfig
	Availability *priority.Availability
	Snapshots    []*models.Snapshot
}

// Strategy performs one operation for the media types it supports.
type Strategy interface {
	Name() string
	Supports(mediaType models.MediaType, op models.Operation) bool
	Execute(ctx context.Context, req *Request) ([]models.Change, error)
}

// Registry holds strategies in registration order.
type Registry struct {
	mu         sync.RWMutex
	strategies []Strategy
}

// NewRegistry creates a registry holding strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{}
	for _, s := range strategies {
		r.Register(s)
	}
	return r
}

// Register appends s. Earlier registrations win lookups.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = append(r.strategies, s)
}

// Lookup returns the first strategy supporting (mediaType, op).
func (r *Registry) Lookup(mediaType models.MediaType, op models.Operation) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.strategies {
		if s.Supports(mediaType, op) {
			return s, true
		}
	}
	return nil, false
}

// Names lists registered strategy names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}
