// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package models

import (
	"time"
)

// APIResponse is the standard wrapper for every admin API response.
//
// Status is "success" with Data populated, or "error" with Error populated:
//
//	{
//	  "status": "success",
//	  "data": {"movies": 120, "shows": 14},
//	  "meta": {"timestamp": "2026-01-12T12:00:00Z", "query_time_ms": 3}
//	}
type APIResponse struct {
	Status string       `json:"status"`
	Data   any          `json:"data"`
	Meta   ResponseMeta `json:"meta"`
	Error  *APIError    `json:"error,omitempty"`
}

// ResponseMeta carries timing information for a response.
type ResponseMeta struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is a machine-readable error code plus a human message.
//
// Common codes: VALIDATION_ERROR, DATABASE_ERROR, NOT_FOUND, SYNC_IN_PROGRESS,
// RATE_LIMIT_EXCEEDED.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
