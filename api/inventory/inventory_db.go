package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

func selectInventory(tx bun.Tx, dst *[]models.InventoryItem) *bun.SelectQuery {
	return tx.NewSelect().
		Model(dst).
		ColumnExpr("i.*").
		ColumnExpr("c.name AS customer_name").
		Join("LEFT JOIN customers AS c ON c.id = i.customer_id").
		Order("i.stock_number ASC", "i.id ASC")
}

func ListInventory(ctx context.Context, db *sqlite.DB) ([]models.InventoryItem, error) {
	list := make([]models.InventoryItem, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return selectInventory(tx, &list).Scan(ctx)
	})
	return list, err
}

func GetInventoryItem(ctx context.Context, db *sqlite.DB, id string) (models.InventoryItem, error) {
	var list []models.InventoryItem
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return selectInventory(tx, &list).Where("i.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return models.InventoryItem{}, err
	}
	if len(list) == 0 {
		return models.InventoryItem{}, apperr.NotFound("inventory item")
	}
	return list[0], nil
}

func CreateInventoryItem(ctx context.Context, db *sqlite.DB, item models.InventoryItem) (models.InventoryItem, error) {
	rows, err := InsertInventory(ctx, db, nil, "", []models.InventoryItem{item})
	if err != nil {
		return models.InventoryItem{}, err
	}
	return rows[0], nil
}

// InsertInventory stores rows in one transaction. A single bad row rolls the
// whole set back. When auditSvc is set the import is recorded.
func InsertInventory(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID string, rows []models.InventoryItem) ([]models.InventoryItem, error) {
	now := time.Now().UTC()
	for i := range rows {
		if err := prepareItem(&rows[i], now); err != nil {
			return nil, apperr.Validation("row %d: %s", i+1, err.Error())
		}
		rows[i].CreatedAt, rows[i].UpdatedAt = now, now
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return err
		}
		if auditSvc == nil {
			return nil
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionImport, "inventory", "*", nil, ImportSummary{Inserted: len(rows)})
	})
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return rows, nil
}

func UpdateInventoryItem(ctx context.Context, db *sqlite.DB, id string, item models.InventoryItem) (models.InventoryItem, error) {
	item.ID = id
	if err := prepareItem(&item, time.Now().UTC()); err != nil {
		return models.InventoryItem{}, apperr.Validation("%s", err.Error())
	}
	item.UpdatedAt = time.Now().UTC()
	var out []models.InventoryItem
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(&item).
			Column("stock_number", "description", "quantity", "location", "status", "inbound_date",
				"inbound_reference", "inbound_order_number", "storage_cost_per_week", "rhd_in", "rhd_out",
				"customer_id", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := apperr.ExpectAffected(res, "inventory item"); err != nil {
			return err
		}
		return selectInventory(tx, &out).Where("i.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return models.InventoryItem{}, apperr.FromStorage(err)
	}
	return out[0], nil
}

func DeleteInventoryItem(ctx context.Context, db *sqlite.DB, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.InventoryItem)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return apperr.ExpectAffected(res, "inventory item")
	})
}

func DeleteAllInventory(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID string) (int64, error) {
	var n int64
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.InventoryItem)(nil)).Where("1 = 1").Exec(ctx)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionDeleteAll, "inventory", "*", nil, map[string]int64{"deleted": n})
	})
	return n, err
}

// prepareItem checks required fields and fills the stored defaults.
func prepareItem(item *models.InventoryItem, now time.Time) error {
	item.StockNumber = strings.TrimSpace(item.StockNumber)
	item.Description = strings.TrimSpace(item.Description)
	if item.StockNumber == "" || item.Description == "" {
		return apperr.Validation("stockNumber and description are required")
	}
	if item.Quantity < 0 {
		return apperr.Validation("quantity must not be negative")
	}
	if strings.TrimSpace(item.ID) == "" {
		item.ID = uuid.NewString()
	}
	if strings.TrimSpace(item.Location) == "" {
		item.Location = DefaultText
	}
	if strings.TrimSpace(item.Status) == "" {
		item.Status = DefaultStatus
	}
	if strings.TrimSpace(item.InboundReference) == "" {
		item.InboundReference = DefaultText
	}
	if strings.TrimSpace(item.InboundDate) == "" {
		item.InboundDate = now.Format(time.RFC3339)
	}
	item.CustomerName = ""
	return nil
}
