// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

/*
Package sync reconciles catalog entities against the snapshots of every
configured source server.

Key Components:

  - Orchestrator: runs a batch of entities for one server with bounded
    concurrency, settling every entity before it returns
  - Registry: maps (media type, operation) to the first registered Strategy
    that supports it
  - FacetStrategy: the default strategies, which run the facet aggregators
    over a movie or a show and its nested seasons and episodes
  - Manager: runs periodic passes over every enabled server, then orphan
    cleanup when every snapshot loaded

Per-Entity Flow:

Each entity is resolved from the repository (or created), healed when its
stored document predates the current layout, then taken through the
operations strictly in order:

 1. metadata: display title and metadata document
 2. assets: artwork URLs and blur placeholders
 3. content: video, captions and chapters

Every operation settles to exactly one of Skipped, Completed or Failed. A
failed operation is rolled back in memory and never retried; later operations
still run. Operations that changed nothing are Skipped and cause no write.

Lifecycle events (started, progress, error, complete) are published on the
injected eventprocessor.Bus.

Usage Example:

	orch := sync.NewOrchestrator(repo, sync.DefaultRegistry(deps), bus, cfg)
	batch, err := orch.SyncEntities(ctx, keys, server, av, sync.Options{
	    MediaType: models.MediaTypeMovie,
	    Snapshots: snapshots,
	})
	if err != nil {
	    return err // repository unreachable
	}
	logging.Info().Int("failed", batch.Summary.Failed).Msg("Batch settled")

Thread Safety:

An Orchestrator may run several batches concurrently. The Manager serializes
passes with a mutex so two passes never overlap.
*/
package sync
