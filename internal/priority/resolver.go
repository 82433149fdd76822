// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package priority

import (
	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/models"
)

// HasPriority reports whether server may write path on the entity.
//
// With no known suppliers the server may always write. Otherwise it may write
// when its priority is at or below the lowest priority among suppliers.
// Suppliers the index has no priority for are ignored. A server that does not
// itself supply the path still passes when it ties the minimum.
func HasPriority(av *Availability, mediaType models.MediaType, key string, path fieldpath.Path, server models.ServerConfig) bool {
	if av == nil {
		return true
	}
	lowest, ok := av.minPriority(mediaType, key, path)
	if !ok {
		return true
	}
	return server.Priority <= lowest
}

// HasAnyPriority reports whether server holds priority for at least one of paths.
func HasAnyPriority(av *Availability, mediaType models.MediaType, key string, paths []fieldpath.Path, server models.ServerConfig) bool {
	for _, p := range paths {
		if HasPriority(av, mediaType, key, p, server) {
			return true
		}
	}
	return false
}

func (a *Availability) minPriority(mediaType models.MediaType, key string, path fieldpath.Path) (int, bool) {
	servers := a.fields[entityKey{mediaType, key}][path]
	lowest, found := 0, false
	for s := range servers {
		p, ok := a.priorities[s]
		if !ok {
			continue
		}
		if !found || p < lowest {
			lowest, found = p, true
		}
	}
	return lowest, found
}

// Offer is one server's value for a field.
type Offer struct {
	Server models.ServerConfig
	Value  any
}

// Winner picks the offer from the most authoritative server. Ties go to the
// offer seen first.
func Winner(offers []Offer) (Offer, bool) {
	if len(offers) == 0 {
		return Offer{}, false
	}
	best := offers[0]
	for _, o := range offers[1:] {
		if o.Server.Priority < best.Server.Priority {
			best = o
		}
	}
	return best, true
}
