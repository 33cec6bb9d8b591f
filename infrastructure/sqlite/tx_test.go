package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

const insertUserSQL = `INSERT INTO users (id, username, password_hash, role) VALUES (?, ?, ?, ?)`

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "migrations")
	if err := ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func countUsers(t *testing.T, db *DB, username string) int {
	t.Helper()
	var count int
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM users WHERE username = ?`, username).Scan(ctx, &count)
	})
	require.NoError(t, err)
	return count
}

func TestWithWriteTxRollsBackOnError(t *testing.T) {
	db := openTestDB(t)

	boom := errors.New("boom")
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, insertUserSQL, "u-1", "rollback-user", "hash", "Operator"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, countUsers(t, db, "rollback-user"))
}

func TestWithWriteTxCommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, insertUserSQL, "u-2", "commit-user", "hash", "Operator")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, 1, countUsers(t, db, "commit-user"))
}

func TestWithReadTxRejectsWrite(t *testing.T) {
	db := openTestDB(t)

	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, insertUserSQL, "u-3", "read-only-user", "hash", "Operator")
		return err
	})
	if err == nil && countUsers(t, db, "read-only-user") > 0 {
		t.Fatalf("expected write in read tx to be blocked; write succeeded")
	}
}
