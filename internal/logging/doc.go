// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

// Package logging provides the zerolog-based structured logger used by every
// catalogd component.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("server", "a").Int("movies", 120).Msg("Snapshot loaded")
//	logging.Err(err).Str("key", key).Msg("Metadata sync failed")
//
// # Configuration
//
// The config package maps these environment variables onto Config:
//
//	LOGGING_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOGGING_FORMAT  - json, console (default: json)
//	LOGGING_CALLER  - include caller file:line (default: false)
//
// # Context-Aware Logging
//
// A sync pass carries a correlation ID and each per-server batch a server ID:
//
//	ctx = logging.ContextWithNewCorrelationID(ctx)
//	ctx = logging.ContextWithServerID(ctx, server.ID)
//	logging.Ctx(ctx).Debug().Str("key", key).Msg("Entity unchanged")
//
// # Adapters
//
// NewSlogLogger feeds the suture supervisor tree through sutureslog, and
// NewWatermillAdapter feeds the watermill event bus. Both write to the same
// zerolog sink as the rest of the process.
//
// # Redaction
//
// Server URLs may carry tokens in their query string. Log them through
// SanitizeURL:
//
//	logging.Warn().Str("url", logging.SanitizeURL(u)).Msg("Snapshot fetch failed")
//
// # Thread Safety
//
// All exported functions are safe for concurrent use.
package logging
