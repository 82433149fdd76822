// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package models defines the data structures shared across Catalogd.

Model Categories:

1. Catalog entities:
  - Movie, TVShow, Season, Episode: canonical records, each implementing Entity
  - Caption, MediaQuality, VideoInfo, Artwork: value types embedded in entities
  - LockedFields: operator overrides exempting paths from automated writes
  - Attribution: per-field record of the supplying server

2. Source server models:
  - ServerConfig: identity, priority and URLs of a source server
  - Snapshot, MovieSource, ShowSource, SeasonSource, EpisodeSource: the media
    list a server publishes

3. Sync results:
  - SyncResult: outcome of one operation on one entity
  - BatchResult: settled results of a batch plus its summary
  - Change: one field write with its supplying server

4. API models:
  - APIResponse, APIError: admin API envelope
  - CatalogStats, HealthStatus, ServerStatus

Entity keys are filesystem-derived and immutable. Season and episode keys are
scoped by their show:

	Breaking Bad                         show
	Breaking Bad/Season 1                season
	Breaking Bad/Season 1/S01E01.mkv     episode
*/
package models
