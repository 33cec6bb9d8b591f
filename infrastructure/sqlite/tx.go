package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// ErrNotInitialized is returned when a transaction is requested on a closed or zero DB.
var ErrNotInitialized = errors.New("sqlite db is not initialized")

// TxFunc is the unit of work run by WithWriteTx and WithReadTx.
type TxFunc func(ctx context.Context, tx bun.Tx) error

// WithWriteTx runs fn in an explicit write transaction. Any error from fn
// rolls the whole transaction back.
func (db *DB) WithWriteTx(ctx context.Context, fn TxFunc) error {
	if db == nil || db.W == nil {
		return ErrNotInitialized
	}
	return db.W.RunInTx(ctx, &sql.TxOptions{}, fn)
}

// WithReadTx runs fn in an explicit read transaction.
func (db *DB) WithReadTx(ctx context.Context, fn TxFunc) error {
	if db == nil || db.R == nil {
		return ErrNotInitialized
	}
	return db.R.RunInTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}
