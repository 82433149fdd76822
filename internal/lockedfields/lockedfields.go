// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package lockedfields strips operator-locked paths from automated updates.
//
// A lock tree is a sparse nested map; a true leaf locks that path and every
// path beneath it. Keys may be nested or dotted, so both of these lock the
// Dolby Vision flag:
//
//	{"mediaQuality": {"viewingExperience": {"dolbyVision": true}}}
//	{"mediaQuality.viewingExperience.dolbyVision": true}
//
// Slices are opaque leaves and never descended into. No function in this
// package mutates its inputs. Suppression is silent: a fully filtered update
// is simply empty.
package lockedfields

import (
	"strings"

	"github.com/tomtom215/catalogd/internal/fieldpath"
	"github.com/tomtom215/catalogd/internal/models"
)

// IsLocked reports whether p, or any ancestor of p, is locked in tree.
func IsLocked(tree models.LockedFields, p fieldpath.Path) bool {
	if len(tree) == 0 {
		return false
	}
	return lockedAt(tree, p.Segments())
}

// IsLockedPath is IsLocked for a raw dotted path.
func IsLockedPath(tree models.LockedFields, dotted string) bool {
	if len(tree) == 0 || dotted == "" {
		return false
	}
	return lockedAt(tree, strings.Split(dotted, "."))
}

func lockedAt(tree map[string]any, segs []string) bool {
	for j := 1; j <= len(segs); j++ {
		v, ok := tree[strings.Join(segs[:j], ".")]
		if !ok {
			continue
		}
		if b, isBool := v.(bool); isBool && b {
			return true
		}
		if sub, isMap := asMap(v); isMap && j < len(segs) && lockedAt(sub, segs[j:]) {
			return true
		}
	}
	return false
}

// hasLockedBelow reports whether any path strictly beneath segs is locked.
func hasLockedBelow(tree map[string]any, segs []string) bool {
	if len(segs) == 0 {
		return anyTrue(tree)
	}
	for j := 1; j <= len(segs); j++ {
		v, ok := tree[strings.Join(segs[:j], ".")]
		if !ok {
			continue
		}
		if sub, isMap := asMap(v); isMap && hasLockedBelow(sub, segs[j:]) {
			return true
		}
	}
	prefix := strings.Join(segs, ".") + "."
	for k, v := range tree {
		if strings.HasPrefix(k, prefix) {
			if b, isBool := v.(bool); isBool && b {
				return true
			}
			if sub, isMap := asMap(v); isMap && anyTrue(sub) {
				return true
			}
		}
	}
	return false
}

func anyTrue(tree map[string]any) bool {
	for _, v := range tree {
		if b, ok := v.(bool); ok && b {
			return true
		}
		if sub, ok := asMap(v); ok && anyTrue(sub) {
			return true
		}
	}
	return false
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case models.LockedFields:
		return m, true
	case models.Metadata:
		return m, true
	default:
		return nil, false
	}
}

// Filter returns a copy of payload without any path locked in tree. Nested
// objects are filtered recursively and dropped when nothing in them survives.
func Filter(tree models.LockedFields, payload map[string]any) map[string]any {
	return filter(tree, nil, payload)
}

func filter(tree map[string]any, prefix []string, payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		path := appendPath(prefix, k)
		if len(tree) > 0 && lockedAt(tree, path) {
			continue
		}
		sub, isMap := asMap(v)
		if !isMap || len(tree) == 0 {
			out[k] = v
			continue
		}
		filtered := filter(tree, path, sub)
		if len(filtered) == 0 && len(sub) > 0 {
			continue
		}
		out[k] = filtered
	}
	return out
}

func appendPath(prefix []string, key string) []string {
	path := make([]string, 0, len(prefix)+1)
	path = append(path, prefix...)
	return append(path, strings.Split(key, ".")...)
}

// FilterChanges drops locked paths from a typed field update.
func FilterChanges(tree models.LockedFields, updates map[fieldpath.Path]any) map[fieldpath.Path]any {
	out := make(map[fieldpath.Path]any, len(updates))
	for p, v := range updates {
		if IsLocked(tree, p) {
			continue
		}
		out[p] = v
	}
	return out
}

// Preserve merges incoming over stored for the structured value at root,
// keeping stored values at every locked path. It is used for values such as
// metadata documents whose individual keys may be locked.
func Preserve(tree models.LockedFields, root fieldpath.Path, stored, incoming map[string]any) map[string]any {
	if IsLocked(tree, root) {
		return copyMap(stored)
	}
	return preserve(tree, root.Segments(), stored, incoming)
}

func preserve(tree map[string]any, prefix []string, stored, incoming map[string]any) map[string]any {
	if incoming == nil && stored == nil {
		return nil
	}
	out := make(map[string]any, len(incoming))
	for k, v := range incoming {
		path := appendPath(prefix, k)
		if lockedAt(tree, path) {
			if sv, ok := stored[k]; ok {
				out[k] = sv
			}
			continue
		}
		vm, vIsMap := asMap(v)
		sm, sIsMap := asMap(stored[k])
		if vIsMap && sIsMap && hasLockedBelow(tree, path) {
			out[k] = preserve(tree, path, sm, vm)
			continue
		}
		out[k] = v
	}
	for k, sv := range stored {
		if _, seen := incoming[k]; seen {
			continue
		}
		path := appendPath(prefix, k)
		if lockedAt(tree, path) {
			out[k] = sv
			continue
		}
		if sm, ok := asMap(sv); ok && hasLockedBelow(tree, path) {
			if kept := preserve(tree, path, sm, nil); len(kept) > 0 {
				out[k] = kept
			}
		}
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Lock returns a copy of tree with p locked.
func Lock(tree models.LockedFields, p fieldpath.Path) models.LockedFields {
	out := deepCopy(tree)
	if out == nil {
		out = models.LockedFields{}
	}
	node := map[string]any(out)
	segs := p.Segments()
	for _, seg := range segs[:len(segs)-1] {
		if b, ok := node[seg].(bool); ok && b {
			return out
		}
		next, ok := asMap(node[seg])
		if !ok {
			next = map[string]any{}
			node[seg] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = true
	return out
}

// Unlock returns a copy of tree with the exact lock on p removed. Dotted
// spellings of the same path are removed too.
func Unlock(tree models.LockedFields, p fieldpath.Path) models.LockedFields {
	out := deepCopy(tree)
	if out == nil {
		return nil
	}
	delete(out, p.String())
	node := map[string]any(out)
	segs := p.Segments()
	for i, seg := range segs {
		if i == len(segs)-1 {
			delete(node, seg)
			break
		}
		next, ok := asMap(node[seg])
		if !ok {
			break
		}
		delete(next, strings.Join(segs[i+1:], "."))
		node = next
	}
	return out
}

func deepCopy(tree models.LockedFields) models.LockedFields {
	if tree == nil {
		return nil
	}
	return models.LockedFields(deepCopyMap(tree))
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := asMap(v); ok {
			out[k] = deepCopyMap(sub)
			continue
		}
		out[k] = v
	}
	return out
}
