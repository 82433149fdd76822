// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package sync

import (
	"fmt"
	"time"

	"github.com/tomtom215/catalogd/internal/models"
)

// Mode selects how a batch schedules its entities.
type Mode string

const (
	// ModeBatch runs up to Concurrency entities at once.
	ModeBatch Mode = "batch"

	// ModeSequential runs one entity at a time.
	ModeSequential Mode = "sequential"
)

// DefaultConcurrency is the per-batch entity limit in batch mode.
const DefaultConcurrency = 5

// Config controls the orchestrator and the pass manager.
type Config struct {
	Mode        Mode               `koanf:"mode" validate:"oneof=batch sequential"`
	Concurrency int                `koanf:"concurrency" validate:"gte=1,lte=64"`
	Operations  []models.Operation `koanf:"operations" validate:"dive,oneof=metadata assets content"`

	// HashShortCircuit skips metadata fetches when the content hash is unchanged.
	HashShortCircuit bool `koanf:"hash_short_circuit"`

	Interval      time.Duration `koanf:"interval" validate:"gte=0"`
	OrphanCleanup bool          `koanf:"orphan_cleanup"`
	ProbeVerify   bool          `koanf:"probe_verify"`
	RunOnStart    bool          `koanf:"run_on_start"`
}

// DefaultConfig returns the default sync configuration.
func DefaultConfig() Config {
	return Config{
		Mode:             ModeBatch,
		Concurrency:      DefaultConcurrency,
		Operations:       models.Operations(),
		HashShortCircuit: true,
		Interval:         15 * time.Minute,
		OrphanCleanup:    true,
		RunOnStart:       true,
	}
}

// workers returns the effective entity concurrency.
func (c Config) workers() int {
	if c.Mode == ModeSequential || c.Concurrency < 1 {
		return 1
	}
	return c.Concurrency
}

// operations returns the configured operations in canonical order.
func (c Config) operations(override []models.Operation) []models.Operation {
	wanted := c.Operations
	if len(override) > 0 {
		wanted = override
	}
	if len(wanted) == 0 {
		return models.Operations()
	}
	set := make(map[models.Operation]bool, len(wanted))
	for _, op := range wanted {
		set[op] = true
	}
	ops := make([]models.Operation, 0, len(set))
	for _, op := range models.Operations() {
		if set[op] {
			ops = append(ops, op)
		}
	}
	return ops
}

// Validate checks values the struct tags cannot express.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeBatch, ModeSequential, "":
	default:
		return fmt.Errorf("sync mode must be %q or %q, got %q", ModeBatch, ModeSequential, c.Mode)
	}
	for _, op := range c.Operations {
		switch op {
		case models.OperationMetadata, models.OperationAssets, models.OperationContent:
		default:
			return fmt.Errorf("unknown sync operation %q", op)
		}
	}
	return nil
}
