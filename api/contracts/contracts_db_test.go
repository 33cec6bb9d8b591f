package contracts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"lattice/api/shared/testdb"
	"lattice/infrastructure/apperr"
)

func TestContractLifecycle(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO customers (id, name) VALUES ('c1', 'Acme'), ('c2', 'Globex')`)
		return err
	})
	require.NoError(t, err)

	c, err := CreateContract(ctx, db, ContractInput{Name: "Chilled", CustomerID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "Acme", c.CustomerName)

	_, err = CreateContract(ctx, db, ContractInput{Name: "Orphan", CustomerID: "nope"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = CreateContract(ctx, db, ContractInput{CustomerID: "c1"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	moved, err := UpdateContract(ctx, db, c.ID, ContractInput{Name: "Chilled", CustomerID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, "Globex", moved.CustomerName)

	list, err := ListContracts(ctx, db)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, DeleteContract(ctx, db, c.ID))
	assert.ErrorIs(t, DeleteContract(ctx, db, c.ID), apperr.ErrNotFound)
	_, err = UpdateContract(ctx, db, c.ID, ContractInput{Name: "x", CustomerID: "c1"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
