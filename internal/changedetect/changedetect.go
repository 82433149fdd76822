// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package changedetect decides whether a candidate value differs from the
// stored one, and produces cheap content hashes for short-circuiting work.
//
// Equality is tolerant of representation drift between sources and storage:
// nil, "" and empty collections are the same value, a timestamp equals its
// textual form, every number compares as float64, and struct values compare
// through their JSON form. Map entries whose value is empty are ignored.
package changedetect

import (
	"reflect"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
)

// timeLayouts are the textual timestamp forms treated as dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
}

// Equal reports whether a and b are the same value after normalization.
func Equal(a, b any) bool {
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// Normalize converts v into its canonical comparable form: nil, string,
// float64, bool, []any or map[string]any.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return normalizeString(x)
	case time.Time:
		return normalizeTime(x)
	case *time.Time:
		if x == nil {
			return nil
		}
		return normalizeTime(*x)
	case bool:
		return x
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		if f, err := strconv.ParseFloat(string(x), 64); err == nil {
			return f
		}
		return string(x)
	case map[string]any:
		return normalizeMap(x)
	case []any:
		return normalizeSlice(x)
	}
	return normalizeReflect(reflect.ValueOf(v))
}

func normalizeString(s string) any {
	if s == "" {
		return nil
	}
	if len(s) >= len("2006-01-02") && s[0] >= '0' && s[0] <= '9' {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return normalizeTime(t)
			}
		}
	}
	return s
}

func normalizeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func normalizeMap(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if n := Normalize(v); n != nil {
			out[k] = n
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func normalizeSlice(s []any) any {
	if len(s) == 0 {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = Normalize(v)
	}
	return out
}

func normalizeReflect(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return Normalize(rv.Elem().Interface())
	case reflect.String:
		return normalizeString(rv.String())
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return nil
		}
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Len() == 0 {
			return nil
		}
		if rv.Type().Key().Kind() == reflect.String {
			m := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				m[iter.Key().String()] = iter.Value().Interface()
			}
			return normalizeMap(m)
		}
		return viaJSON(rv.Interface())
	default:
		return viaJSON(rv.Interface())
	}
}

// viaJSON normalizes structs and exotic maps through their JSON encoding.
func viaJSON(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return v
	}
	return Normalize(decoded)
}

// Hash returns a stable hex digest of v's normalized form. Values that are
// Equal hash identically.
func Hash(v any) string {
	data, err := json.Marshal(Normalize(v))
	if err != nil {
		return ""
	}
	return HashBytes(data)
}

// HashBytes returns the hex xxhash64 digest of data.
func HashBytes(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// Unchanged reports whether an externally supplied content hash matches the
// stored one. Empty hashes never match.
func Unchanged(stored, incoming string) bool {
	return stored != "" && stored == incoming
}
