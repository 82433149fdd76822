// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogd/internal/eventprocessor"
	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/priority"
	"github.com/tomtom215/catalogd/internal/repository"
	"github.com/tomtom215/catalogd/internal/syncerr"
)

// Publisher receives lifecycle events. *eventprocessor.Bus implements it.
type Publisher interface {
	Publish(ctx context.Context, e *eventprocessor.Event) error
}

// Options scope one SyncEntities call.
type Options struct {
	MediaType models.MediaType // MediaTypeMovie or MediaTypeTVShow
	Snapshots []*models.Snapshot

	// Operations overrides the configured operations for this batch.
	Operations []models.Operation
}

// Orchestrator runs batches of entities through the registered strategies.
type Orchestrator struct {
	repo     repository.Repository
	registry *Registry
	events   Publisher
	cfg      Config
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator. events may be nil.
func NewOrchestrator(repo repository.Repository, registry *Registry, events Publisher, cfg Config) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		registry: registry,
		events:   events,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SyncEntities reconciles keys against the snapshots for server and settles
// every entity before returning. It returns an error only when the batch can
// not start: an unsupported media type or an unreachable repository. Every
// per-entity failure, panics included, is reported in the BatchResult.
//
// Cancelling ctx stops new entities from starting; entities already running
// finish and the rest are reported Skipped.
func (o *Orchestrator) SyncEntities(ctx context.Context, keys []string, server models.ServerConfig, av *priority.Availability, opts Options) (*models.BatchResult, error) {
	start := time.Now()
	mediaType := opts.MediaType
	if mediaType != models.MediaTypeMovie && mediaType != models.MediaTypeTVShow {
		return nil, syncerr.NewValidationError("", fmt.Sprintf("cannot sync media type %q", mediaType), repository.ErrUnsupportedMediaType)
	}
	if err := o.repo.Ping(ctx); err != nil {
		return nil, syncerr.NewPersistenceError("ping", "", err)
	}
	if av == nil {
		av = priority.Build(opts.Snapshots)
	}

	ctx = logging.ContextWithServerID(ctx, server.ID)
	log := logging.Ctx(ctx)
	keys = dedupe(keys)
	ops := o.cfg.operations(opts.Operations)

	batch := &models.BatchResult{
		ID:        uuid.NewString(),
		ServerID:  server.ID,
		MediaType: mediaType,
	}
	o.publish(ctx, eventprocessor.BatchEvent(eventprocessor.EventStarted, batch.ID, server.ID, &eventprocessor.BatchInfo{
		MediaType: mediaType,
		Keys:      len(keys),
	}))
	log.Debug().Str("batch_id", batch.ID).Str("media_type", string(mediaType)).Int("keys", len(keys)).Msg("Batch started")

	// In-flight entities run to completion even if ctx is cancelled.
	work := context.WithoutCancel(ctx)
	job := &entityJob{
		batchID:   batch.ID,
		server:    server,
		av:        av,
		snapshots: opts.Snapshots,
		mediaType: mediaType,
		ops:       ops,
	}

	perEntity := make([][]models.SyncResult, len(keys))
	sem := make(chan struct{}, o.cfg.workers())
	var wg sync.WaitGroup

submit:
	for i, key := range keys {
		select {
		case <-ctx.Done():
			break submit
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			break submit
		}
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			defer func() { <-sem }()
			perEntity[i] = o.syncEntity(work, job, key)
		}(i, key)
	}
	wg.Wait()

	for i, key := range keys {
		results := perEntity[i]
		if results == nil {
			results = o.notStarted(job, key, ctx.Err())
		}
		batch.Results = append(batch.Results, results...)
		status := models.EntityStatus(results)
		batch.Summary.Add(status)
		if status == models.StatusFailed {
			for _, r := range results {
				batch.Errors = append(batch.Errors, r.Errors...)
			}
		}
	}
	batch.Duration = time.Since(start)

	metrics.RecordSyncBatch(server.ID, string(mediaType), len(keys), batch.Duration)
	o.publish(ctx, eventprocessor.BatchEvent(eventprocessor.EventComplete, batch.ID, server.ID, &eventprocessor.BatchInfo{
		MediaType: mediaType,
		Keys:      len(keys),
		Summary:   &batch.Summary,
		Duration:  batch.Duration,
		Errors:    batch.Errors,
	}))
	log.Info().
		Str("batch_id", batch.ID).
		Str("media_type", string(mediaType)).
		Int("total", batch.Summary.Total).
		Int("completed", batch.Summary.Completed).
		Int("failed", batch.Summary.Failed).
		Int("skipped", batch.Summary.Skipped).
		Dur("duration", batch.Duration).
		Msg("Batch settled")
	return batch, nil
}

// entityJob is the per-batch context shared by every entity.
type entityJob struct {
	batchID   string
	server    models.ServerConfig
	av        *priority.Availability
	snapshots []*models.Snapshot
	mediaType models.MediaType
	ops       []models.Operation
}

func (j *entityJob) result(key string, op models.Operation, now time.Time) models.SyncResult {
	return models.SyncResult{
		Status:    models.StatusPending,
		EntityID:  key,
		MediaType: j.mediaType,
		Operation: op,
		ServerID:  j.server.ID,
		Timestamp: now,
	}
}

// syncEntity runs every operation for key. It never panics.
func (o *Orchestrator) syncEntity(ctx context.Context, job *entityJob, key string) (results []models.SyncResult) {
	defer func() {
		if r := recover(); r != nil {
			err := syncerr.FromPanic(r)
			logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("Entity sync panicked")
			results = o.failRemaining(ctx, job, key, results, err)
		}
	}()

	doc, err := resolve(ctx, o.repo, job.mediaType, key)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Entity resolve failed")
		return o.failRemaining(ctx, job, key, nil, err)
	}

	for _, op := range job.ops {
		r := o.runOperation(ctx, job, doc, op)
		results = append(results, r)
		o.settle(ctx, job, &r)
	}

	if doc.healed && doc.stored {
		if err := doc.persist(ctx, o.repo); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("Healed document write failed")
		}
	}
	return results
}

// runOperation settles one operation. The entity is rolled back when the
// strategy or the write fails.
func (o *Orchestrator) runOperation(ctx context.Context, job *entityJob, doc *document, op models.Operation) models.SyncResult {
	r := job.result(doc.key, op, o.now())

	strategy, ok := o.registry.Lookup(job.mediaType, op)
	if !ok {
		r.Status = models.StatusSkipped
		return r
	}
	r.Strategy = strategy.Name()

	backup := doc.snapshot()
	changes, err := o.execute(ctx, strategy, &Request{
		Entity:       doc.entity(),
		MediaType:    job.mediaType,
		Operation:    op,
		Server:       job.server,
		Availability: job.av,
		Snapshots:    job.snapshots,
	})
	if err != nil {
		doc.restore(backup)
		if syncerr.KindOf(err) == syncerr.KindUnknown {
			err = syncerr.NewStrategyError(strategy.Name(), string(op), doc.key, err)
		}
		r.Status = models.StatusFailed
		r.Errors = []string{err.Error()}
		logging.Ctx(ctx).Warn().Err(err).Str("key", doc.key).Str("operation", string(op)).Msg("Operation failed")
		return r
	}
	if len(changes) == 0 {
		r.Status = models.StatusSkipped
		return r
	}

	doc.touch(r.Timestamp)
	if err := doc.persist(ctx, o.repo); err != nil {
		doc.restore(backup)
		r.Status = models.StatusFailed
		r.Errors = []string{err.Error()}
		logging.Ctx(ctx).Warn().Err(err).Str("key", doc.key).Str("operation", string(op)).Msg("Operation write failed")
		return r
	}
	r.Status = models.StatusCompleted
	r.Changes = changes
	return r
}

// execute calls the strategy, turning a panic into a StrategyError.
func (o *Orchestrator) execute(ctx context.Context, s Strategy, req *Request) (changes []models.Change, err error) {
	defer func() {
		if r := recover(); r != nil {
			changes = nil
			err = syncerr.NewStrategyError(s.Name(), string(req.Operation), req.Entity.EntityKey(), syncerr.FromPanic(r))
		}
	}()
	return s.Execute(ctx, req)
}

// failRemaining marks every operation not yet in results as Failed with err.
func (o *Orchestrator) failRemaining(ctx context.Context, job *entityJob, key string, results []models.SyncResult, err error) []models.SyncResult {
	now := o.now()
	for _, op := range job.ops[len(results):] {
		r := job.result(key, op, now)
		r.Status = models.StatusFailed
		r.Errors = []string{err.Error()}
		results = append(results, r)
		o.settle(ctx, job, &r)
	}
	return results
}

// notStarted reports an entity that was never submitted because ctx ended.
func (o *Orchestrator) notStarted(job *entityJob, key string, cause error) []models.SyncResult {
	if cause == nil {
		cause = context.Canceled
	}
	now := o.now()
	results := make([]models.SyncResult, 0, len(job.ops))
	for _, op := range job.ops {
		r := job.result(key, op, now)
		r.Status = models.StatusSkipped
		r.Errors = []string{"not started: " + cause.Error()}
		results = append(results, r)
	}
	return results
}

// settle records metrics and publishes the result's lifecycle event.
func (o *Orchestrator) settle(ctx context.Context, job *entityJob, r *models.SyncResult) {
	metrics.RecordSyncResult(string(r.Operation), string(r.Status), r.ServerID, len(r.Changes))
	o.publish(ctx, eventprocessor.ResultEvent(job.batchID, r))
}

func (o *Orchestrator) publish(ctx context.Context, e *eventprocessor.Event) {
	if o.events == nil {
		return
	}
	e.CorrelationID = logging.CorrelationIDFromContext(ctx)
	if err := o.events.Publish(ctx, e); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("type", string(e.Type)).Msg("Event publish failed")
	}
}

// dedupe drops repeated and empty keys, keeping first occurrences in order.
func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
