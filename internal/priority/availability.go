// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package priority indexes which servers supply which fields and decides
// which server may write each field.
//
// Lower priority values are more authoritative. A server may write a field
// when no other known supplier of that field has a strictly lower priority.
package priority

import (
	"sort"

	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/snapshot"
)

type entityKey struct {
	mediaType models.MediaType
	key       string
}

// Availability maps media type, entity key and field path to the set of
// servers supplying a value. It is built fresh from live snapshots each
// pass and is read-only once built; concurrent reads are safe.
type Availability struct {
	fields     map[entityKey]map[fieldpath.Path]map[string]struct{}
	priorities map[string]int
}

// New creates an empty index.
func New() *Availability {
	return &Availability{
		fields:     make(map[entityKey]map[fieldpath.Path]map[string]struct{}),
		priorities: make(map[string]int),
	}
}

// SetPriority records the priority of a contributing server.
func (a *Availability) SetPriority(serverID string, priority int) {
	a.priorities[serverID] = priority
}

// Priority returns a server's recorded priority.
func (a *Availability) Priority(serverID string) (int, bool) {
	p, ok := a.priorities[serverID]
	return p, ok
}

// Add records that serverID supplies path for the entity.
func (a *Availability) Add(mediaType models.MediaType, key string, path fieldpath.Path, serverID string) {
	ek := entityKey{mediaType, key}
	paths, ok := a.fields[ek]
	if !ok {
		paths = make(map[fieldpath.Path]map[string]struct{})
		a.fields[ek] = paths
	}
	servers, ok := paths[path]
	if !ok {
		servers = make(map[string]struct{})
		paths[path] = servers
	}
	servers[serverID] = struct{}{}
}

// AddCandidates records every path in c as supplied by serverID.
func (a *Availability) AddCandidates(mediaType models.MediaType, key string, c snapshot.Candidates, serverID string) {
	for path := range c {
		a.Add(mediaType, key, path, serverID)
	}
}

// Suppliers returns the servers supplying path, sorted by ID.
func (a *Availability) Suppliers(mediaType models.MediaType, key string, path fieldpath.Path) []string {
	servers := a.fields[entityKey{mediaType, key}][path]
	out := make([]string, 0, len(servers))
	for s := range servers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Paths returns every path recorded for the entity.
func (a *Availability) Paths(mediaType models.MediaType, key string) []fieldpath.Path {
	paths := a.fields[entityKey{mediaType, key}]
	out := make([]fieldpath.Path, 0, len(paths))
	for p := range paths {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Has reports whether any server supplies anything for the entity.
func (a *Availability) Has(mediaType models.MediaType, key string) bool {
	_, ok := a.fields[entityKey{mediaType, key}]
	return ok
}

// Len returns the number of indexed entities.
func (a *Availability) Len() int {
	return len(a.fields)
}

// Build indexes every snapshot. Entities are registered even when they
// supply no fields so presence checks see them.
func Build(snapshots []*models.Snapshot) *Availability {
	a := New()
	for _, snap := range snapshots {
		if snap == nil {
			continue
		}
		server := snap.Server
		a.SetPriority(server.ID, server.Priority)

		for key, movie := range snap.Movies {
			a.register(models.MediaTypeMovie, key)
			a.AddCandidates(models.MediaTypeMovie, key, snapshot.MovieCandidates(server, movie), server.ID)
		}
		for showKey, show := range snap.TV {
			a.register(models.MediaTypeTVShow, showKey)
			a.AddCandidates(models.MediaTypeTVShow, showKey, snapshot.ShowCandidates(server, show), server.ID)

			for seasonName, season := range show.Seasons {
				number, err := models.ParseSeasonName(seasonName)
				if err != nil {
					continue
				}
				seasonKey := models.SeasonKey(showKey, number)
				a.register(models.MediaTypeSeason, seasonKey)
				a.AddCandidates(models.MediaTypeSeason, seasonKey, snapshot.SeasonCandidates(server, season), server.ID)

				for fileKey, ep := range season.Episodes {
					epKey := models.EpisodeKey(showKey, number, fileKey)
					a.register(models.MediaTypeEpisode, epKey)
					a.AddCandidates(models.MediaTypeEpisode, epKey, snapshot.EpisodeCandidates(server, ep), server.ID)
				}
			}
		}
	}
	return a
}

func (a *Availability) register(mediaType models.MediaType, key string) {
	ek := entityKey{mediaType, key}
	if _, ok := a.fields[ek]; !ok {
		a.fields[ek] = make(map[fieldpath.Path]map[string]struct{})
	}
}
