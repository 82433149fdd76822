// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/catalogd/internal/logging"
)

// Config holds DuckDB settings.
type Config struct {
	// Path is the database file, or ":memory:".
	Path string `koanf:"path" validate:"required"`

	// MaxMemory caps DuckDB's buffer pool, e.g. "1GB".
	MaxMemory string `koanf:"max_memory" validate:"omitempty,bytesize"`

	// Threads is DuckDB's worker thread count; 0 uses every CPU.
	Threads int `koanf:"threads" validate:"gte=0"`
}

// DefaultConfig returns the default DuckDB configuration.
func DefaultConfig() Config {
	return Config{
		Path:      "/data/catalogd.duckdb",
		MaxMemory: "1GB",
	}
}

// DB is the DuckDB-backed catalog store.
type DB struct {
	conn *sql.DB
	cfg  Config

	// DuckDB allows one writer per row at a time; per-key locks keep two
	// upserts of the same document from conflicting.
	keyLocks sync.Map

	maxReconnectTries int
	reconnectDelay    time.Duration
	reconnectMu       sync.Mutex
}

// New opens the database and initializes the schema.
func New(cfg Config) (*DB, error) {
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	conn, err := sql.Open("duckdb", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:              conn,
		cfg:               cfg,
		maxReconnectTries: 3,
		reconnectDelay:    2 * time.Second,
	}

	if err := db.configureConnectionPool(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to configure connection pool: %w", err)
	}

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Msg("Catalog database ready")
	return db, nil
}

// connString builds the DuckDB DSN with tuning options. Extension
// autoloading is disabled; the catalog schema needs none.
func connString(cfg Config) string {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = DefaultConfig().MaxMemory
	}
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}
	return fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, threads, maxMemory)
}

// Conn returns the underlying SQL connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close checkpoints the WAL and closes the connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Checkpoint flushes the WAL into the database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// initialize creates tables and runs migrations. Only primary keys are
// indexed: DuckDB upserts may not touch other indexed columns.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}
	return db.runVersionedMigrations()
}

func (db *DB) lockKey(key string) func() {
	v, _ := db.keyLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
