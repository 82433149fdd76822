// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/catalogd/internal/logging"
	"github.com/tomtom215/catalogd/internal/metrics"
	"github.com/tomtom215/catalogd/internal/models"
	"github.com/tomtom215/catalogd/internal/orphans"
	"github.com/tomtom215/catalogd/internal/priority"
	"github.com/tomtom215/catalogd/internal/probe"
	"github.com/tomtom215/catalogd/internal/repository"
	"github.com/tomtom215/catalogd/internal/snapshot"
)

// ErrNotRunning is returned by Stop when the manager was never started.
var ErrNotRunning = errors.New("sync manager is not running")

// SnapshotLoader loads the snapshot of every enabled server.
// *snapshot.Loader implements it.
type SnapshotLoader interface {
	LoadAll(ctx context.Context, servers []models.ServerConfig) *snapshot.Result
}

// ManagerDeps are the collaborators of a Manager.
type ManagerDeps struct {
	Servers      []models.ServerConfig
	Loader       SnapshotLoader
	Orchestrator *Orchestrator
	Repository   repository.Repository
	Applier      *orphans.Applier
	Prober       probe.Prober // used for orphan detection when Config.ProbeVerify is set
}

// PassResult is the outcome of one full pass over every server.
type PassResult struct {
	ID             string                `json:"id"`
	CorrelationID  string                `json:"correlationId"`
	StartedAt      time.Time             `json:"startedAt"`
	Duration       time.Duration         `json:"duration"`
	Batches        []*models.BatchResult `json:"batches"`
	FailedServers  map[string]string     `json:"failedServers,omitempty"`
	Orphans        *orphans.Result       `json:"orphans,omitempty"`
	OrphansSkipped bool                  `json:"orphansSkipped"`
	Error          string                `json:"error,omitempty"`
}

// Partial reports whether any enabled server failed to load.
func (p *PassResult) Partial() bool {
	return len(p.FailedServers) > 0
}

// Manager runs reconciliation passes on an interval and on demand.
type Manager struct {
	cfg  Config
	deps ManagerDeps

	mu       sync.RWMutex
	syncMu   sync.Mutex // serializes passes
	syncing  atomic.Bool
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	lastSync time.Time
	lastPass *PassResult
	status   map[string]*models.ServerStatus

	onPassCompleted func(*PassResult)
}

// NewManager creates a pass manager.
func NewManager(cfg Config, deps ManagerDeps) *Manager {
	status := make(map[string]*models.ServerStatus, len(deps.Servers))
	for _, s := range deps.Servers {
		st := &models.ServerStatus{
			ID:       s.ID,
			Priority: s.Priority,
			URL:      logging.SanitizeURL(s.BaseURL),
			Enabled:  s.Enabled,
			Status:   "idle",
		}
		if !s.Enabled {
			st.Status = "disabled"
		}
		status[s.ID] = st
	}
	return &Manager{
		cfg:      cfg,
		deps:     deps,
		stopChan: make(chan struct{}),
		status:   status,
	}
}

// Start begins the periodic pass loop. With RunOnStart the first pass runs
// in the background right away.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("sync manager is already running")
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	logging.Info().Dur("interval", m.cfg.Interval).Int("servers", len(m.deps.Servers)).Msg("Starting sync manager")

	if m.cfg.RunOnStart {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if _, err := m.TriggerSync(ctx); err != nil {
				logging.Warn().Err(err).Msg("Initial pass failed (will retry)")
			}
		}()
	}

	m.wg.Add(1)
	go m.syncLoop(ctx, stop)
	return nil
}

// Stop ends the loop and waits for a running pass to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")
	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
	return nil
}

// Serve runs the manager until ctx is done. It implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	if err := m.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (m *Manager) String() string { return "sync-manager" }

// Running reports whether the loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastSyncTime returns the end of the last pass that finished without error.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}

// LastPass returns the most recent pass result, or nil.
func (m *Manager) LastPass() *PassResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastPass
}

// ServerStatuses returns the status of every configured server in
// configuration order.
func (m *Manager) ServerStatuses() []models.ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ServerStatus, 0, len(m.deps.Servers))
	for _, s := range m.deps.Servers {
		if st, ok := m.status[s.ID]; ok {
			out = append(out, *st)
		}
	}
	return out
}

// SetOnPassCompleted registers a callback run after every pass, successful
// or not. Call it before Start.
func (m *Manager) SetOnPassCompleted(fn func(*PassResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPassCompleted = fn
}

// Syncing reports whether a pass is in progress.
func (m *Manager) Syncing() bool {
	return m.syncing.Load()
}

// TriggerSync runs one pass now. Concurrent calls wait their turn.
func (m *Manager) TriggerSync(ctx context.Context) (*PassResult, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	m.syncing.Store(true)
	defer m.syncing.Store(false)

	pass, err := m.runPass(ctx)

	m.mu.RLock()
	fn := m.onPassCompleted
	m.mu.RUnlock()
	if fn != nil {
		fn(pass)
	}
	return pass, err
}

func (m *Manager) syncLoop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()
	if m.cfg.Interval <= 0 {
		select {
		case <-stop:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := m.TriggerSync(ctx); err != nil {
				logging.Error().Err(err).Msg("Scheduled pass failed")
			}
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// runPass loads every snapshot, reconciles movies then shows for each server
// in priority order, and removes orphans when every snapshot loaded.
func (m *Manager) runPass(ctx context.Context) (*PassResult, error) {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.Ctx(ctx)
	pass := &PassResult{
		ID:            uuid.NewString(),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		StartedAt:     time.Now().UTC(),
		FailedServers: make(map[string]string),
	}
	log.Info().Str("pass_id", pass.ID).Msg("Sync pass started")

	loaded := m.deps.Loader.LoadAll(ctx, m.deps.Servers)
	for id, err := range loaded.Failed {
		pass.FailedServers[id] = logging.SanitizeError(err)
		m.markServer(id, "error", err)
	}
	snaps := loaded.Snapshots
	snapshot.SortByPriority(snaps)
	av := priority.Build(snaps)

	err := m.syncServers(ctx, pass, snaps, av)
	if err == nil {
		err = m.cleanOrphans(ctx, pass, loaded, snaps)
	}

	pass.Duration = time.Since(pass.StartedAt)
	if err != nil {
		pass.Error = err.Error()
	}
	metrics.RecordSyncPass(pass.Duration, pass.Partial(), err)

	m.mu.Lock()
	m.lastPass = pass
	if err == nil {
		m.lastSync = time.Now().UTC()
	}
	m.mu.Unlock()

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("pass_id", pass.ID).
		Int("servers", len(snaps)).
		Int("failed_servers", len(pass.FailedServers)).
		Dur("duration", pass.Duration).
		Msg("Sync pass finished")
	return pass, err
}

// syncServers runs one server at a time, movies before shows.
func (m *Manager) syncServers(ctx context.Context, pass *PassResult, snaps []*models.Snapshot, av *priority.Availability) error {
	for _, snap := range snaps {
		server := snap.Server
		m.markServer(server.ID, "syncing", nil)

		var failed int
		for _, job := range []struct {
			mediaType models.MediaType
			keys      []string
		}{
			{models.MediaTypeMovie, snap.MovieKeys()},
			{models.MediaTypeTVShow, backedShowKeys(snap, snaps)},
		} {
			if ctx.Err() != nil {
				m.markServer(server.ID, "error", ctx.Err())
				return ctx.Err()
			}
			batch, err := m.deps.Orchestrator.SyncEntities(ctx, job.keys, server, av, Options{
				MediaType: job.mediaType,
				Snapshots: snaps,
			})
			if err != nil {
				m.markServer(server.ID, "error", err)
				return fmt.Errorf("sync %s %s: %w", server.ID, job.mediaType, err)
			}
			failed += batch.Summary.Failed
			pass.Batches = append(pass.Batches, batch)
		}

		m.mu.Lock()
		if st, ok := m.status[server.ID]; ok {
			st.MoviesSeen = len(snap.Movies)
			st.ShowsSeen = len(snap.TV)
		}
		m.mu.Unlock()
		if failed > 0 {
			m.markServer(server.ID, "idle", fmt.Errorf("%d entities failed", failed))
		} else {
			m.markServer(server.ID, "idle", nil)
		}
	}
	return nil
}

// cleanOrphans removes catalog entries no snapshot backs. It is skipped when
// any enabled server failed to load or none is configured.
func (m *Manager) cleanOrphans(ctx context.Context, pass *PassResult, loaded *snapshot.Result, snaps []*models.Snapshot) error {
	if !m.cfg.OrphanCleanup || m.deps.Applier == nil {
		return nil
	}
	log := logging.Ctx(ctx)
	if !loaded.Complete() || len(snaps) == 0 {
		pass.OrphansSkipped = true
		log.Warn().Int("failed_servers", len(loaded.Failed)).Msg("Orphan cleanup skipped: not every server snapshot loaded")
		return nil
	}

	movies, shows, err := repository.LoadCatalog(ctx, m.deps.Repository)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	opts := orphans.Options{}
	if m.cfg.ProbeVerify {
		opts.Prober = m.deps.Prober
	}
	report, err := orphans.Detect(ctx, orphans.Catalog{Movies: movies, Shows: shows}, snaps, opts)
	if err != nil {
		return fmt.Errorf("detect orphans: %w", err)
	}
	if report.Empty() {
		return nil
	}
	pass.Orphans = m.deps.Applier.Apply(ctx, report)
	if err := pass.Orphans.Err(); err != nil {
		log.Warn().Err(err).Msg("Some orphans could not be removed")
	}
	return nil
}

func (m *Manager) markServer(id, status string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.status[id]
	if !ok {
		return
	}
	now := time.Now().UTC()
	st.Status = status
	switch {
	case err != nil:
		st.LastError = logging.SanitizeError(err)
		st.LastErrorAt = &now
		st.LastSyncStatus = "failed"
	case status == "idle":
		st.LastSyncAt = &now
		st.LastSyncStatus = "completed"
	}
}

// backedShowKeys returns snap's shows that at least one snapshot backs with
// an episode video. A show nobody backs would be created here and pruned
// again by orphan cleanup on every pass.
func backedShowKeys(snap *models.Snapshot, snaps []*models.Snapshot) []string {
	keys := snap.ShowKeys()
	out := keys[:0]
	for _, key := range keys {
		for _, other := range snaps {
			if show, ok := other.Show(key); ok && show.Backed() {
				out = append(out, key)
				break
			}
		}
	}
	return out
}
