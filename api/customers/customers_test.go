package customers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"lattice/api/shared/testdb"
	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

func ids(v ...string) *[]string { return &v }

func mirrorOf(t *testing.T, db *sqlite.DB, table, customerID string) (string, bool) {
	t.Helper()
	var names []string
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Table(table).Column("name").Where("customer_id = ?", customerID).Scan(ctx, &names)
	})
	require.NoError(t, err)
	if len(names) == 0 {
		return "", false
	}
	return names[0], true
}

func exec(t *testing.T, db *sqlite.DB, query string, args ...any) {
	t.Helper()
	err := db.WithWriteTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
	require.NoError(t, err)
}

func TestCreateCustomer_FlagsCreateMirrorRows(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	c, err := CreateCustomer(ctx, db, CustomerInput{Name: "Acme", IsSupplier: true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, c.Status)

	name, ok := mirrorOf(t, db, "suppliers", c.ID)
	assert.True(t, ok)
	assert.Equal(t, "Acme", name)
	_, ok = mirrorOf(t, db, "hauliers", c.ID)
	assert.False(t, ok)

	_, err = CreateCustomer(ctx, db, CustomerInput{Name: "Acme"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = CreateCustomer(ctx, db, CustomerInput{Name: "Bad", Status: "Dormant"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateCustomer_SyncsMirrorAndAdoptsStandalone(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	auditSvc := audit.NewService()
	exec(t, db, `INSERT INTO hauliers (id, name) VALUES ('h-old', 'Globex')`)

	c, err := CreateCustomer(ctx, db, CustomerInput{Name: "Globex", IsSupplier: true})
	require.NoError(t, err)

	updated, err := UpdateCustomer(ctx, db, auditSvc, "u1", c.ID, CustomerInput{Name: "Globex", Status: models.StatusArchived, IsHaulier: true})
	require.NoError(t, err)
	assert.False(t, updated.AlsoSupplier)
	assert.True(t, updated.AlsoHaulier)

	_, ok := mirrorOf(t, db, "suppliers", c.ID)
	assert.False(t, ok, "supplier mirror removed when flag cleared")

	var haulier models.Haulier
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().Model(&haulier).Where("id = ?", "h-old").Scan(ctx)
	})
	require.NoError(t, err)
	require.NotNil(t, haulier.CustomerID)
	assert.Equal(t, c.ID, *haulier.CustomerID)
	assert.Equal(t, models.StatusArchived, haulier.Status)

	var audits int
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM audit_logs WHERE entity_type = 'customer' AND entity_id = ?`, c.ID).Scan(ctx, &audits)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, audits)

	_, err = UpdateCustomer(ctx, db, auditSvc, "u1", "missing", CustomerInput{Name: "X"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateCustomer_FailedAssociationRollsBack(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	c, err := CreateCustomer(ctx, db, CustomerInput{Name: "Initech"})
	require.NoError(t, err)

	_, err = UpdateCustomer(ctx, db, audit.NewService(), "u1", c.ID, CustomerInput{Name: "Renamed", SupplierIDs: ids("no-such-supplier")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	list, err := ListCustomers(ctx, db)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Initech", list[0].Name)
}

func TestAssociationsReplaceAndList(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()
	exec(t, db, `INSERT INTO suppliers (id, name) VALUES ('s1', 'Alpha'), ('s2', 'Beta')`)
	exec(t, db, `INSERT INTO hauliers (id, name) VALUES ('h1', 'Truckers')`)

	c, err := CreateCustomer(ctx, db, CustomerInput{Name: "Umbrella", SupplierIDs: ids("s1", "s2"), HaulierIDs: ids("h1")})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/customers/{id}/suppliers", ListCustomerSuppliersHandler(db))
	r.Put("/customers/{id}/suppliers", ReplaceCustomerSuppliersHandler(db))
	r.Get("/customers/{id}/hauliers", ListCustomerHauliersHandler(db))

	req := httptest.NewRequest(http.MethodPut, "/customers/"+c.ID+"/suppliers", strings.NewReader(`["s2","s2"]`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	suppliers, err := ListCustomerSuppliers(ctx, db, c.ID)
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	assert.Equal(t, "s2", suppliers[0].ID)

	list, err := ListCustomers(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, list[0].SupplierIDs)
	assert.Equal(t, []string{"h1"}, list[0].HaulierIDs)

	req = httptest.NewRequest(http.MethodGet, "/customers/missing/hauliers", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteCustomer_CascadesAndNulls(t *testing.T) {
	db := testdb.Open(t)
	ctx := context.Background()

	c, err := CreateCustomer(ctx, db, CustomerInput{Name: "Hooli", IsSupplier: true})
	require.NoError(t, err)
	exec(t, db, `INSERT INTO contracts (id, name, customer_id) VALUES ('k1', 'Main', ?)`, c.ID)
	exec(t, db, `INSERT INTO orders (id, order_number, customer_id) VALUES ('o1', 'ORD-1', ?)`, c.ID)
	exec(t, db, `INSERT INTO bookings (id, type, start_date_time, end_date_time, customer_id, contract_id)
		VALUES ('b1', 'Inbound', '2024-01-01T09:00:00', '2024-01-01T10:00:00', ?, 'k1')`, c.ID)
	exec(t, db, `INSERT INTO inventory (id, inbound_date, customer_id) VALUES ('i1', '2024-01-01', ?)`, c.ID)

	require.NoError(t, DeleteCustomer(ctx, db, audit.NewService(), "u1", c.ID))

	var counts struct {
		Contracts int `bun:"contracts"`
		Orders    int `bun:"orders"`
		Suppliers int `bun:"suppliers"`
		Bookings  int `bun:"bookings"`
	}
	var bookingCustomer, inventoryCustomer *string
	err = db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewRaw(`SELECT
			(SELECT COUNT(*) FROM contracts) AS contracts,
			(SELECT COUNT(*) FROM orders) AS orders,
			(SELECT COUNT(*) FROM suppliers) AS suppliers,
			(SELECT COUNT(*) FROM bookings) AS bookings`).Scan(ctx, &counts); err != nil {
			return err
		}
		if err := tx.NewRaw(`SELECT customer_id FROM bookings WHERE id = 'b1'`).Scan(ctx, &bookingCustomer); err != nil {
			return err
		}
		return tx.NewRaw(`SELECT customer_id FROM inventory WHERE id = 'i1'`).Scan(ctx, &inventoryCustomer)
	})
	require.NoError(t, err)
	assert.Zero(t, counts.Contracts)
	assert.Zero(t, counts.Orders)
	assert.Zero(t, counts.Suppliers)
	assert.Equal(t, 1, counts.Bookings)
	assert.Nil(t, bookingCustomer)
	assert.Nil(t, inventoryCustomer)

	err = DeleteCustomer(ctx, db, audit.NewService(), "u1", c.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
