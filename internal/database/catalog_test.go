// Catalogd - Multi-Server Media Catalog Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/catalogd

package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/tomtom215/catalogd/internal/repository"
	"github.com/tomtom215/catalogd/internal/repository/repotest"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: ":memory:", MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCatalogContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Repository {
		return setupTestDB(t)
	})
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.duckdb")
	ctx := context.Background()

	db, err := New(Config{Path: path, Threads: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertShow(ctx, "Severance", repotest.SampleShow("Severance")); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(Config{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	show, err := db.FindShow(ctx, "Severance")
	if err != nil {
		t.Fatal(err)
	}
	if len(show.Seasons) != 2 {
		t.Errorf("len(Seasons) = %d after reopen, want 2", len(show.Seasons))
	}
	if v, err := db.GetMigrationVersion(ctx); err != nil || v != 0 {
		t.Errorf("GetMigrationVersion() = %d, %v", v, err)
	}
}

func TestConnString(t *testing.T) {
	t.Parallel()

	got := connString(Config{Path: ":memory:", MaxMemory: "512MB", Threads: 2})
	want := "?access_mode=read_write&threads=2&max_memory=512MB&autoinstall_known_extensions=false&autoload_known_extensions=false"
	if got != want {
		t.Errorf("connString() = %q, want %q", got, want)
	}
}

func TestIsTransactionConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want bool
	}{
		{"TransactionContext Error: Transaction conflict: cannot update", true},
		{"Constraint Error: Conflict on update", true},
		{"Catalog Error: table missing", false},
	}
	for _, tt := range tests {
		if got := isTransactionConflict(errString(tt.msg)); got != tt.want {
			t.Errorf("isTransactionConflict(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
	if isTransactionConflict(nil) {
		t.Error("isTransactionConflict(nil) = true")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
