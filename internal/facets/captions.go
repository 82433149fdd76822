// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package facets

import (
	"context"
	"sort"

	"github.com/tomtom215/catalogd/internal/changedetect"
	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/lockedfields"
	"github.com/tomtom215/catalogd/internal/models"
)

// Captions reconciles subtitle tracks per language.
//
// A language last supplied by the running server that has disappeared from
// its snapshot, and that no other server holding priority still offers, is
// removed. Languages owned by other servers are never pruned by this pass.
type Captions struct{}

// NewCaptions creates the captions aggregator.
func NewCaptions() *Captions { return &Captions{} }

// Name implements Aggregator.
func (c *Captions) Name() string { return "captions" }

// Aggregate implements Aggregator.
func (c *Captions) Aggregate(_ context.Context, in *Input) (*Update, error) {
	u := newUpdate(c.Name())
	locks := in.Entity.Locks()
	if lockedfields.IsLocked(locks, fieldpath.Of(fieldpath.Captions)) {
		return u, nil
	}

	// Offered languages in English-first, alphabetical order so new tracks
	// are appended deterministically.
	var offered []string
	seen := make(map[string]bool)
	for _, s := range in.Sources {
		for _, caption := range s.Values.Captions() {
			if !seen[caption.Language] {
				seen[caption.Language] = true
				offered = append(offered, caption.Language)
			}
		}
	}
	sortLanguages(offered)

	won := make(map[string]bool, len(offered))
	for _, lang := range offered {
		p := fieldpath.Caption(lang)
		w, ok := winner(in, p)
		if !ok {
			continue
		}
		won[lang] = true
		if lockedfields.IsLocked(locks, p) {
			continue
		}
		current, _ := in.Entity.Get(p)
		if changedetect.Equal(current, w.Value) {
			continue
		}
		u.set(p, w.Value, w.Server.ID)
	}

	stored, _ := in.Entity.Get(fieldpath.Of(fieldpath.Captions))
	list, _ := stored.([]models.Caption)
	own := in.own()
	for _, caption := range list {
		p := fieldpath.Caption(caption.Language)
		if won[caption.Language] || !c.ownedBy(in, caption, in.Server.ID) {
			continue
		}
		if _, still := own[p]; still {
			continue
		}
		if lockedfields.IsLocked(locks, p) {
			continue
		}
		u.Removed = append(u.Removed, p)
	}
	return u, nil
}

// ownedBy reports whether serverID supplied the stored caption, preferring the
// attribution record over the caption's own field.
func (c *Captions) ownedBy(in *Input, caption models.Caption, serverID string) bool {
	if src := in.Entity.SourceOf(fieldpath.Caption(caption.Language)); src != "" {
		return src == serverID
	}
	return caption.SourceServerID == serverID
}

func sortLanguages(langs []string) {
	sort.Slice(langs, func(i, j int) bool {
		ei, ej := models.IsEnglish(langs[i]), models.IsEnglish(langs[j])
		if ei != ej {
			return ei
		}
		return langs[i] < langs[j]
	})
}
