// Package testdb opens migrated throwaway databases for package tests.
package testdb

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"lattice/infrastructure/sqlite"
)

// Open returns a migrated database in t.TempDir, closed on cleanup.
func Open(t testing.TB) *sqlite.DB {
	t.Helper()
	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := sqlite.ApplyMigrations(context.Background(), db, MigrationsDir(t)); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

// MigrationsDir locates infrastructure/sqlite/migrations from this source file.
func MigrationsDir(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "infrastructure", "sqlite", "migrations")
}
