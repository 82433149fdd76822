// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package facets reduces the values every server offers for one entity to a
// single update per content category.
//
// Every aggregator follows the same steps:
//
//  1. take the candidate values each server snapshot offers for the entity
//  2. drop candidates from servers that lack priority for the field
//  3. keep the value of the lowest-priority-number server, first seen on ties
//  4. compare the winners with the stored values using tolerant equality
//  5. emit only the fields that differ, attributed to the winning server
//
// Locked fields are never part of an update. Aggregators never write to the
// entity; the caller applies the Update with Apply.
package facets

import (
	"context"
	"sort"

	"github.com/tomtom215/catalogd/internal/changedetect"
	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/lockedfields"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/priority"
	"github.com/tomtom215/catalogd/internal/snapshot"
)

// Source is one server's candidate values for the entity being reconciled.
type Source struct {
	Server models.ServerConfig
	Values snapshot.Candidates
}

// Input is everything an aggregator needs for one entity.
type Input struct {
	Entity       models.Entity
	Server       models.ServerConfig // server whose pass is running
	Availability *priority.Availability
	Sources      []Source // observation order; ties go to the earlier source
}

// MediaType returns the entity's media type.
func (in *Input) MediaType() models.MediaType { return in.Entity.Type() }

// Key returns the entity's reconciliation key.
func (in *Input) Key() string { return in.Entity.EntityKey() }

// own returns the calling server's candidates, or nil when its snapshot
// does not list the entity.
func (in *Input) own() snapshot.Candidates {
	for _, s := range in.Sources {
		if s.Server.ID == in.Server.ID {
			return s.Values
		}
	}
	return nil
}

// Update is the set of field writes one aggregator decided on.
type Update struct {
	Facet   string
	Values  map[fieldpath.Path]any
	Sources map[fieldpath.Path]string
	Removed []fieldpath.Path

	// MetadataHash, when non-empty, is recorded with the entity.
	MetadataHash string
}

func newUpdate(facet string) *Update {
	return &Update{
		Facet:   facet,
		Values:  make(map[fieldpath.Path]any),
		Sources: make(map[fieldpath.Path]string),
	}
}

func (u *Update) set(p fieldpath.Path, value any, serverID string) {
	u.Values[p] = value
	u.Sources[p] = serverID
}

// Empty reports whether the update writes nothing.
func (u *Update) Empty() bool {
	return u == nil || (len(u.Values) == 0 && len(u.Removed) == 0 && u.MetadataHash == "")
}

// Paths returns the written and removed paths in a stable order.
func (u *Update) Paths() []fieldpath.Path {
	out := make([]fieldpath.Path, 0, len(u.Values)+len(u.Removed))
	for p := range u.Values {
		out = append(out, p)
	}
	out = append(out, u.Removed...)
	sortPaths(out)
	return out
}

// Aggregator computes one facet's update for an entity.
type Aggregator interface {
	Name() string
	Aggregate(ctx context.Context, in *Input) (*Update, error)
}

// hashRecorder is implemented by entities that keep a metadata content hash.
type hashRecorder interface {
	StoredMetadataHash() string
	SetMetadataHash(string)
}

// Apply writes u to entity and returns the resulting changes. Locked paths
// are filtered again here so an update computed before a lock was taken can
// not overwrite it.
func Apply(entity models.Entity, u *Update) ([]models.Change, error) {
	if u.Empty() {
		return nil, nil
	}
	locks := entity.Locks()
	values := lockedfields.FilterChanges(locks, u.Values)

	paths := make([]fieldpath.Path, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sortPaths(paths)

	var changes []models.Change
	for _, p := range paths {
		old, _ := entity.Get(p)
		if err := entity.Set(p, values[p]); err != nil {
			return changes, err
		}
		serverID := u.Sources[p]
		if serverID != "" {
			entity.SetSource(p, serverID)
		}
		changes = append(changes, models.Change{
			EntityKey: entity.EntityKey(),
			Path:      p.String(),
			Old:       old,
			New:       values[p],
			ServerID:  serverID,
		})
	}

	for _, p := range u.Removed {
		if lockedfields.IsLocked(locks, p) {
			continue
		}
		old, ok := entity.Get(p)
		if !ok {
			continue
		}
		if err := entity.Set(p, nil); err != nil {
			return changes, err
		}
		entity.ClearSource(p)
		changes = append(changes, models.Change{EntityKey: entity.EntityKey(), Path: p.String(), Old: old})
	}

	if u.MetadataHash != "" {
		if h, ok := entity.(hashRecorder); ok && h.StoredMetadataHash() != u.MetadataHash {
			old := h.StoredMetadataHash()
			h.SetMetadataHash(u.MetadataHash)
			changes = append(changes, models.Change{
				EntityKey: entity.EntityKey(),
				Path:      "metadataHash",
				Old:       old,
				New:       u.MetadataHash,
			})
		}
	}
	return changes, nil
}

// winner returns the offer for p from the lowest-priority-number server
// holding priority for it.
func winner(in *Input, p fieldpath.Path) (priority.Offer, bool) {
	var offers []priority.Offer
	for _, s := range in.Sources {
		v, ok := s.Values[p]
		if !ok {
			continue
		}
		if !priority.HasPriority(in.Availability, in.MediaType(), in.Key(), p, s.Server) {
			continue
		}
		offers = append(offers, priority.Offer{Server: s.Server, Value: v})
	}
	return priority.Winner(offers)
}

// resolveSimple handles fields whose candidate value is written as is.
func resolveSimple(in *Input, u *Update, fields ...fieldpath.Field) {
	locks := in.Entity.Locks()
	for _, f := range fields {
		p := fieldpath.Of(f)
		if lockedfields.IsLocked(locks, p) {
			continue
		}
		w, ok := winner(in, p)
		if !ok {
			continue
		}
		current, _ := in.Entity.Get(p)
		if changedetect.Equal(current, w.Value) {
			continue
		}
		u.set(p, w.Value, w.Server.ID)
	}
}

func sortPaths(paths []fieldpath.Path) {
	sort.Slice(paths, func(i, j int) bool {
		if paths[i].Field != paths[j].Field {
			return paths[i].Field < paths[j].Field
		}
		return paths[i].Key < paths[j].Key
	})
}
