package orders

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

func selectOrders(tx bun.Tx, dst *[]models.Order) *bun.SelectQuery {
	return tx.NewSelect().
		Model(dst).
		ColumnExpr("o.*").
		ColumnExpr("c.name AS customer_name").
		Join("LEFT JOIN customers AS c ON c.id = o.customer_id").
		Order("o.created_at DESC", "o.order_number ASC")
}

// loadOrders scans orders and attaches their items.
func loadOrders(ctx context.Context, tx bun.Tx, q *bun.SelectQuery, list *[]models.Order) error {
	if err := q.Scan(ctx); err != nil {
		return err
	}
	if len(*list) == 0 {
		return nil
	}
	ids := make([]string, len(*list))
	for i, o := range *list {
		ids[i] = o.ID
	}
	var items []models.OrderItem
	if err := tx.NewSelect().Model(&items).Where("order_id IN (?)", bun.In(ids)).Order("id ASC").Scan(ctx); err != nil {
		return err
	}
	byOrder := make(map[string][]models.OrderItem, len(*list))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}
	for i := range *list {
		(*list)[i].Items = byOrder[(*list)[i].ID]
		if (*list)[i].Items == nil {
			(*list)[i].Items = []models.OrderItem{}
		}
	}
	return nil
}

func ListOrders(ctx context.Context, db *sqlite.DB) ([]models.Order, error) {
	list := make([]models.Order, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return loadOrders(ctx, tx, selectOrders(tx, &list), &list)
	})
	return list, err
}

// CreateOrder writes the order and its items in one transaction.
func CreateOrder(ctx context.Context, db *sqlite.DB, in OrderInput) (models.Order, error) {
	if err := validate(&in); err != nil {
		return models.Order{}, err
	}
	now := time.Now().UTC()
	order := models.Order{
		ID:          uuid.NewString(),
		OrderNumber: in.OrderNumber,
		CustomerID:  in.CustomerID,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var out models.Order
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&order).Exec(ctx); err != nil {
			return err
		}
		if in.Items != nil {
			if err := writeItems(ctx, tx, order.ID, *in.Items); err != nil {
				return err
			}
		}
		var err error
		out, err = reload(ctx, tx, order.ID)
		return err
	})
	if err != nil {
		return models.Order{}, apperr.FromStorage(err)
	}
	return out, nil
}

// UpdateOrder replaces the order row, and its items when provided.
func UpdateOrder(ctx context.Context, db *sqlite.DB, id string, in OrderInput) (models.Order, error) {
	if err := validate(&in); err != nil {
		return models.Order{}, err
	}
	var out models.Order
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*models.Order)(nil)).
			Set("order_number = ?", in.OrderNumber).
			Set("customer_id = ?", in.CustomerID).
			Set("status = ?", in.Status).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := apperr.ExpectAffected(res, "order"); err != nil {
			return err
		}
		if in.Items != nil {
			if _, err := tx.NewDelete().Model((*models.OrderItem)(nil)).Where("order_id = ?", id).Exec(ctx); err != nil {
				return err
			}
			if err := writeItems(ctx, tx, id, *in.Items); err != nil {
				return err
			}
		}
		out, err = reload(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Order{}, apperr.FromStorage(err)
	}
	return out, nil
}

func DeleteOrder(ctx context.Context, db *sqlite.DB, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.Order)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return apperr.ExpectAffected(res, "order")
	})
}

// DeleteAllOrders removes every order; items cascade.
func DeleteAllOrders(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID string) (int64, error) {
	var n int64
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.Order)(nil)).Where("1 = 1").Exec(ctx)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionDeleteAll, "order", "*", nil, map[string]int64{"deleted": n})
	})
	return n, err
}

func writeItems(ctx context.Context, tx bun.Tx, orderID string, in []ItemInput) error {
	if len(in) == 0 {
		return nil
	}
	items := make([]models.OrderItem, len(in))
	for i, it := range in {
		if it.Quantity < 0 {
			return apperr.Validation("item %d: quantity must not be negative", i+1)
		}
		if it.Price.IsNegative() {
			return apperr.Validation("item %d: price must not be negative", i+1)
		}
		items[i] = models.OrderItem{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			InventoryID: it.InventoryID,
			Quantity:    it.Quantity,
			Price:       it.Price,
		}
	}
	_, err := tx.NewInsert().Model(&items).Exec(ctx)
	return err
}

func reload(ctx context.Context, tx bun.Tx, id string) (models.Order, error) {
	var list []models.Order
	if err := loadOrders(ctx, tx, selectOrders(tx, &list).Where("o.id = ?", id), &list); err != nil {
		return models.Order{}, err
	}
	if len(list) == 0 {
		return models.Order{}, apperr.NotFound("order")
	}
	return list[0], nil
}

func validate(in *OrderInput) error {
	in.OrderNumber = strings.TrimSpace(in.OrderNumber)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	if in.OrderNumber == "" || in.CustomerID == "" {
		return apperr.Validation("orderNumber and customer_id are required")
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !ValidStatus(in.Status) {
		return apperr.Validation("unknown order status %q", in.Status)
	}
	return nil
}
