// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package validation provides struct validation using go-playground/validator v10.
//
// This package wraps the go-playground/validator library to provide a thread-safe
// singleton validator instance with custom validators and user-friendly error
// messages. It is used for configuration validation at startup and for request
// validation in the admin API.
//
// # Overview
//
// The package provides:
//   - Thread-safe singleton validator (initialized once, cached struct info)
//   - Error translation to human-readable messages with dotted field paths
//   - APIError conversion matching the admin API error format
//   - The custom "bytesize" validator for memory limits such as "512MB"
//
// # Quick Start
//
//	type EntityRequest struct {
//	    MediaType string `validate:"required,oneof=movie tv"`
//	    Key       string `validate:"required,max=512"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message)
//	    return
//	}
//
// # Field Paths
//
// Path() returns the field's location below the root struct, so a failing
// server URL in the application config reports "Servers[1].BaseURL".
//
// # Thread Safety
//
// GetValidator and ValidateStruct are safe for concurrent use.
package validation
