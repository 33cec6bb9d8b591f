package sqlite

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/uptrace/bun"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migration is one versioned schema step. Steps run once, in version order,
// each inside its own write transaction together with its version record.
type Migration struct {
	Version int
	Name    string
	up      func(ctx context.Context, tx bun.Tx, files fs.FS) error
}

// Column is an additive column definition.
type Column struct {
	Name string
	DDL  string
}

// Migrations is the ordered schema history. Never reorder or edit a shipped
// step; append a new one instead.
var Migrations = []Migration{
	{Version: 1, Name: "init", up: sqlFile("0001_init.sql")},
	{Version: 2, Name: "bookings_expected_pallets", up: addColumns("bookings",
		Column{"expected_pallets", "INTEGER NOT NULL DEFAULT 0"},
	)},
	{Version: 3, Name: "inventory_rhd", up: addColumns("inventory",
		Column{"rhd_in", "TEXT NOT NULL DEFAULT '0'"},
		Column{"rhd_out", "TEXT NOT NULL DEFAULT '0'"},
	)},
	{Version: 4, Name: "customer_partner_flags", up: addColumns("customers",
		Column{"also_supplier", "INTEGER NOT NULL DEFAULT 0"},
		Column{"also_haulier", "INTEGER NOT NULL DEFAULT 0"},
	)},
	{Version: 5, Name: "partner_customer_link", up: chain(
		addColumns("suppliers", Column{"customer_id", "TEXT REFERENCES customers(id) ON DELETE CASCADE"}),
		addColumns("hauliers", Column{"customer_id", "TEXT REFERENCES customers(id) ON DELETE CASCADE"}),
	)},
	{Version: 6, Name: "partner_mirror_indexes", up: sqlFile("0006_partner_mirror_indexes.sql")},
	{Version: 7, Name: "username_nocase", up: sqlFile("0007_username_nocase.sql")},
}

// ApplyMigrations brings the schema up to the latest version.
//
// If migrationsDir is empty, embedded migrations are applied.
func ApplyMigrations(ctx context.Context, db *DB, migrationsDir string) error {
	if strings.TrimSpace(migrationsDir) == "" {
		return ApplyEmbeddedMigrations(ctx, db)
	}
	return ApplyMigrationsFromDir(ctx, db, migrationsDir)
}

// ApplyEmbeddedMigrations applies pending steps using embedded SQL files.
func ApplyEmbeddedMigrations(ctx context.Context, db *DB) error {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	return applyMigrations(ctx, db, sub)
}

// ApplyMigrationsFromDir applies pending steps reading SQL files from a directory.
func ApplyMigrationsFromDir(ctx context.Context, db *DB, migrationsDir string) error {
	if _, err := os.Stat(migrationsDir); err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	return applyMigrations(ctx, db, os.DirFS(migrationsDir))
}

// AppliedVersions lists recorded schema versions in ascending order.
func AppliedVersions(ctx context.Context, db *DB) ([]int, error) {
	var versions []int
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Table("schema_migrations").
			Column("version").
			Order("version ASC").
			Scan(ctx, &versions)
	})
	if err != nil {
		return nil, fmt.Errorf("list schema versions: %w", err)
	}
	return versions, nil
}

func applyMigrations(ctx context.Context, db *DB, files fs.FS) error {
	if _, err := db.WriteSQL.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range Migrations {
		if err := applySingleMigration(ctx, db, m, files); err != nil {
			return err
		}
	}
	return nil
}

func applySingleMigration(ctx context.Context, db *DB, m Migration, files fs.FS) error {
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var applied int
		if err := tx.NewRaw(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.Version).Scan(ctx, &applied); err != nil {
			return err
		}
		if applied > 0 {
			return nil
		}
		if err := m.up(ctx, tx, files); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name)
		return err
	})
	if err != nil {
		return fmt.Errorf("apply migration %d_%s: %w", m.Version, m.Name, err)
	}
	return nil
}

func sqlFile(name string) func(ctx context.Context, tx bun.Tx, files fs.FS) error {
	return func(ctx context.Context, tx bun.Tx, files fs.FS) error {
		sqlBytes, err := fs.ReadFile(files, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		// Raw driver exec: SQL files may contain literal question marks.
		_, err = tx.Tx.ExecContext(ctx, string(sqlBytes))
		return err
	}
}

// addColumns adds each column that the live table does not have yet, so
// databases that already carry a column from an older build are left alone.
func addColumns(table string, cols ...Column) func(ctx context.Context, tx bun.Tx, files fs.FS) error {
	return func(ctx context.Context, tx bun.Tx, _ fs.FS) error {
		for _, col := range cols {
			exists, err := columnExists(ctx, tx, table, col.Name)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.Name, col.DDL)
			if _, err := tx.Tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("add column %s.%s: %w", table, col.Name, err)
			}
		}
		return nil
	}
}

func chain(steps ...func(ctx context.Context, tx bun.Tx, files fs.FS) error) func(ctx context.Context, tx bun.Tx, files fs.FS) error {
	return func(ctx context.Context, tx bun.Tx, files fs.FS) error {
		for _, step := range steps {
			if err := step(ctx, tx, files); err != nil {
				return err
			}
		}
		return nil
	}
}

func columnExists(ctx context.Context, tx bun.Tx, table, column string) (bool, error) {
	var n int
	err := tx.NewRaw(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(ctx, &n)
	if err != nil {
		return false, fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	return n > 0, nil
}
