package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"lattice/api/shared/testdb"
	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

func newRouter(db *sqlite.DB) chi.Router {
	auditSvc := audit.NewService()
	r := chi.NewRouter()
	r.Get("/inventory", ListInventoryHandler(db))
	r.Post("/inventory", CreateInventoryHandler(db))
	r.Post("/inventory/bulk", BulkInventoryHandler(db, auditSvc))
	r.Post("/inventory/import", ImportInventoryHandler(db, auditSvc))
	r.Get("/inventory/export.csv", ExportInventoryCSVHandler(db))
	r.Delete("/inventory/all", DeleteAllInventoryHandler(db, auditSvc))
	r.Get("/inventory/{id}/label", InventoryLabelHandler(db))
	r.Put("/inventory/{id}", UpdateInventoryHandler(db))
	r.Delete("/inventory/{id}", DeleteInventoryHandler(db))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func countInventory(t *testing.T, db *sqlite.DB) int {
	t.Helper()
	var n int
	err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(`SELECT COUNT(*) FROM inventory`).Scan(ctx, &n)
	})
	require.NoError(t, err)
	return n
}

func TestCreateInventoryItem_AppliesDefaultsAndKeepsDecimals(t *testing.T) {
	db := testdb.Open(t)
	h := newRouter(db)

	rec := do(t, h, http.MethodPost, "/inventory", `{"stockNumber":"SKU-1","description":"Widgets","quantity":4,"storageCostPerWeek":12.35}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	list, err := ListInventory(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, DefaultStatus, list[0].Status)
	assert.Equal(t, DefaultText, list[0].Location)
	assert.True(t, decimal.RequireFromString("12.35").Equal(list[0].StorageCostPerWeek))
	assert.NotEmpty(t, list[0].InboundDate)
}

func TestBulkInventory_RollsBackOnBadRow(t *testing.T) {
	db := testdb.Open(t)
	h := newRouter(db)

	rec := do(t, h, http.MethodPost, "/inventory/bulk", `[{"stockNumber":"A","description":"a"},{"stockNumber":"","description":"b"}]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, countInventory(t, db))

	rec = do(t, h, http.MethodPost, "/inventory/bulk", `[{"id":"x","stockNumber":"A","description":"a"},{"id":"x","stockNumber":"B","description":"b"}]`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, countInventory(t, db))

	rec = do(t, h, http.MethodPost, "/inventory/bulk", `[{"stockNumber":"A","description":"a"},{"stockNumber":"B","description":"b"}]`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"inserted":2}`, rec.Body.String())
	assert.Equal(t, 2, countInventory(t, db))
}

func TestParseCSV_UsesMappingAndDefaults(t *testing.T) {
	csvData := "SKU,Desc,Qty,Cost,Arrived\nA1,Boxes,3,1.50,2024-02-01\nB2,,x,,\n"
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	rows, err := ParseCSV(strings.NewReader(csvData), Mapping{
		"stockNumber":        "SKU",
		"description":        "Desc",
		"quantity":           "Qty",
		"storageCostPerWeek": "Cost",
		"inboundDate":        "Arrived",
	}, now)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "A1", rows[0].StockNumber)
	assert.Equal(t, 3, rows[0].Quantity)
	assert.Equal(t, "2024-02-01T00:00:00Z", rows[0].InboundDate)
	assert.True(t, decimal.RequireFromString("1.5").Equal(rows[0].StorageCostPerWeek))

	assert.Equal(t, DefaultText, rows[1].Description)
	assert.Equal(t, 0, rows[1].Quantity)
	assert.Equal(t, DefaultStatus, rows[1].Status)
	assert.Equal(t, "2024-03-01T12:00:00Z", rows[1].InboundDate)
	assert.True(t, rows[1].StorageCostPerWeek.IsZero())
}

func TestParseCSV_RejectsBadDate(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("stockNumber,inboundDate\nA,not-a-date\n"), nil, time.Now())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestImportInventoryHandler_MultipartWithMapping(t *testing.T) {
	db := testdb.Open(t)
	h := newRouter(db)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "stock.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Code,Name\nP-1,Pallet one\nP-2,Pallet two\n"))
	require.NoError(t, err)
	mapping, _ := json.Marshal(Mapping{"stockNumber": "Code", "description": "Name"})
	require.NoError(t, mw.WriteField("mapping", string(mapping)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/inventory/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"inserted":2}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/inventory/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,stockNumber"))
	assert.Contains(t, lines[1], "P-1")
}

func TestUpdateDeleteAndLabel(t *testing.T) {
	db := testdb.Open(t)
	h := newRouter(db)
	ctx := context.Background()

	item, err := CreateInventoryItem(ctx, db, models.InventoryItem{StockNumber: "S-9", Description: "Crates"})
	require.NoError(t, err)

	rec := do(t, h, http.MethodPut, "/inventory/"+item.ID, `{"stockNumber":"S-9","description":"Crates","quantity":7,"location":"A-01"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"location":"A-01"`)

	rec = do(t, h, http.MethodGet, "/inventory/"+item.ID+"/label", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = do(t, h, http.MethodGet, "/inventory/missing/label", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/inventory/"+item.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, http.MethodPut, "/inventory/"+item.ID, `{"stockNumber":"S-9","description":"Crates"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteAllInventory(t *testing.T) {
	db := testdb.Open(t)
	h := newRouter(db)
	_, err := InsertInventory(context.Background(), db, nil, "", []models.InventoryItem{
		{StockNumber: "A", Description: "a"}, {StockNumber: "B", Description: "b"}, {StockNumber: "C", Description: "c"},
	})
	require.NoError(t, err)

	rec := do(t, h, http.MethodDelete, "/inventory/all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":3}`, rec.Body.String())
	assert.Zero(t, countInventory(t, db))
}
