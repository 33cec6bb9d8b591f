package partners

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

func (k Kind[T]) List(ctx context.Context, db *sqlite.DB) ([]T, error) {
	list := make([]T, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&list).OrderExpr("name ASC").Scan(ctx)
	})
	return list, err
}

func (k Kind[T]) Create(ctx context.Context, db *sqlite.DB, in PartnerInput) (T, error) {
	var zero T
	in, err := normalize(in)
	if err != nil {
		return zero, err
	}
	row := k.build(uuid.NewString(), in, time.Now().UTC())
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&row).Exec(ctx)
		return err
	})
	if err != nil {
		return zero, apperr.FromStorage(err)
	}
	return row, nil
}

// Update renames or re-statuses a standalone row. Rows mirrored from a
// customer are edited through the customer instead.
func (k Kind[T]) Update(ctx context.Context, db *sqlite.DB, id string, in PartnerInput) (T, error) {
	var out T
	in, err := normalize(in)
	if err != nil {
		return out, err
	}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := k.requireStandalone(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model((*T)(nil)).
			Set("name = ?", in.Name).
			Set("status = ?", in.Status).
			Where("id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(&out).Where("id = ?", id).Scan(ctx)
	})
	if err != nil {
		return out, apperr.FromStorage(err)
	}
	return out, nil
}

func (k Kind[T]) Delete(ctx context.Context, db *sqlite.DB, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := k.requireStandalone(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

// DeleteAll empties the table, mirrors included, and clears the matching
// customer flag so no customer claims a row that is gone.
func (k Kind[T]) DeleteAll(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID string) (int64, error) {
	var n int64
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*T)(nil)).Where("1 = 1").Exec(ctx)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		if _, err := tx.NewUpdate().Model((*models.Customer)(nil)).
			Set("? = 0", bun.Ident(k.flagColumn())).
			Where("1 = 1").
			Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionDeleteAll, k.Entity, "*", nil, map[string]int64{"deleted": n})
	})
	return n, err
}

func (k Kind[T]) requireStandalone(ctx context.Context, tx bun.Tx, id string) error {
	var row T
	if err := tx.NewSelect().Model(&row).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(k.Entity)
		}
		return err
	}
	if k.link(row) != nil {
		return apperr.Conflict("%s is managed by its customer record", k.Entity)
	}
	return nil
}

func normalize(in PartnerInput) (PartnerInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Status = strings.TrimSpace(in.Status)
	if in.Name == "" {
		return in, apperr.Validation("name is required")
	}
	if in.Status == "" {
		in.Status = models.StatusActive
	}
	if !models.ValidPartyStatus(in.Status) {
		return in, apperr.Validation("unknown status %q", in.Status)
	}
	return in, nil
}
