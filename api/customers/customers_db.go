package customers

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

// ListCustomers returns customers ordered by name with their association ids.
func ListCustomers(ctx context.Context, db *sqlite.DB) ([]models.Customer, error) {
	list := make([]models.Customer, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(&list).Order("name ASC").Scan(ctx); err != nil {
			return err
		}
		suppliers, err := linkIndex(ctx, tx, supplierLinks)
		if err != nil {
			return err
		}
		hauliers, err := linkIndex(ctx, tx, haulierLinks)
		if err != nil {
			return err
		}
		for i := range list {
			list[i].SupplierIDs = suppliers[list[i].ID]
			list[i].HaulierIDs = hauliers[list[i].ID]
		}
		return nil
	})
	return list, err
}

func CreateCustomer(ctx context.Context, db *sqlite.DB, in CustomerInput) (models.Customer, error) {
	in, err := normalize(in)
	if err != nil {
		return models.Customer{}, err
	}
	c := models.Customer{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Status:       in.Status,
		AlsoSupplier: in.IsSupplier,
		AlsoHaulier:  in.IsHaulier,
		CreatedAt:    time.Now().UTC(),
	}
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&c).Exec(ctx); err != nil {
			return err
		}
		return syncPartners(ctx, tx, &c, in)
	})
	if err != nil {
		return models.Customer{}, apperr.FromStorage(err)
	}
	return c, nil
}

// UpdateCustomer replaces the customer row, keeps the mirror supplier and
// haulier rows in step with the flags, and rewrites any associations sent.
// Everything commits together with an audit record.
func UpdateCustomer(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id string, in CustomerInput) (models.Customer, error) {
	in, err := normalize(in)
	if err != nil {
		return models.Customer{}, err
	}
	var after models.Customer
	err = db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Customer
		if err := tx.NewSelect().Model(&before).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("customer")
			}
			return err
		}
		after = before
		after.Name = in.Name
		after.Status = in.Status
		after.AlsoSupplier = in.IsSupplier
		after.AlsoHaulier = in.IsHaulier
		if _, err := tx.NewUpdate().Model(&after).
			Column("name", "status", "also_supplier", "also_haulier").
			WherePK().
			Exec(ctx); err != nil {
			return err
		}
		if err := syncPartners(ctx, tx, &after, in); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionUpdate, "customer", id, before, after)
	})
	if err != nil {
		return models.Customer{}, apperr.FromStorage(err)
	}
	return after, nil
}

// DeleteCustomer removes the customer. Contracts, orders, join rows and
// mirror partner rows cascade; bookings and inventory keep a NULL reference.
func DeleteCustomer(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		var before models.Customer
		if err := tx.NewSelect().Model(&before).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.NotFound("customer")
			}
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Customer)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionDelete, "customer", id, before, nil)
	})
}

func ListCustomerSuppliers(ctx context.Context, db *sqlite.DB, customerID string) ([]models.Supplier, error) {
	list := make([]models.Supplier, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		return tx.NewSelect().Model(&list).
			Join("JOIN customer_suppliers AS cs ON cs.supplier_id = s.id").
			Where("cs.customer_id = ?", customerID).
			Order("s.name ASC").
			Scan(ctx)
	})
	return list, err
}

func ListCustomerHauliers(ctx context.Context, db *sqlite.DB, customerID string) ([]models.Haulier, error) {
	list := make([]models.Haulier, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		return tx.NewSelect().Model(&list).
			Join("JOIN customer_hauliers AS ch ON ch.haulier_id = h.id").
			Where("ch.customer_id = ?", customerID).
			Order("h.name ASC").
			Scan(ctx)
	})
	return list, err
}

func ListCustomerContracts(ctx context.Context, db *sqlite.DB, customerID string) ([]models.Contract, error) {
	list := make([]models.Contract, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		return tx.NewSelect().Model(&list).Where("customer_id = ?", customerID).Order("name ASC").Scan(ctx)
	})
	return list, err
}

// ReplaceSuppliers sets the full supplier list for a customer.
func ReplaceSuppliers(ctx context.Context, db *sqlite.DB, customerID string, ids []string) error {
	return replaceAssociation(ctx, db, supplierLinks, customerID, ids)
}

// ReplaceHauliers sets the full haulier list for a customer.
func ReplaceHauliers(ctx context.Context, db *sqlite.DB, customerID string, ids []string) error {
	return replaceAssociation(ctx, db, haulierLinks, customerID, ids)
}

func replaceAssociation(ctx context.Context, db *sqlite.DB, a association, customerID string, ids []string) error {
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if err := requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		return writeLinks(ctx, tx, a, customerID, ids)
	})
	return apperr.FromStorage(err)
}

func syncPartners(ctx context.Context, tx bun.Tx, c *models.Customer, in CustomerInput) error {
	if err := syncMirror(ctx, tx, supplierMirror, c, c.AlsoSupplier); err != nil {
		return err
	}
	if err := syncMirror(ctx, tx, haulierMirror, c, c.AlsoHaulier); err != nil {
		return err
	}
	if in.SupplierIDs != nil {
		if err := writeLinks(ctx, tx, supplierLinks, c.ID, *in.SupplierIDs); err != nil {
			return err
		}
		c.SupplierIDs = *in.SupplierIDs
	}
	if in.HaulierIDs != nil {
		if err := writeLinks(ctx, tx, haulierLinks, c.ID, *in.HaulierIDs); err != nil {
			return err
		}
		c.HaulierIDs = *in.HaulierIDs
	}
	return nil
}

// syncMirror keeps one partner row linked to the customer while enabled is
// set. A standalone row with the same name is adopted instead of duplicated.
func syncMirror(ctx context.Context, tx bun.Tx, m mirror, c *models.Customer, enabled bool) error {
	if !enabled {
		_, err := tx.NewDelete().Table(m.table).Where("customer_id = ?", c.ID).Exec(ctx)
		return err
	}

	res, err := tx.NewUpdate().Table(m.table).
		Set("name = ?", c.Name).
		Set("status = ?", c.Status).
		Where("customer_id = ?", c.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	res, err = tx.NewUpdate().Table(m.table).
		Set("customer_id = ?", c.ID).
		Set("status = ?", c.Status).
		Where("name = ?", c.Name).
		Where("customer_id IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = tx.NewInsert().TableExpr(m.table).Model(&map[string]any{
		"id":          uuid.NewString(),
		"name":        c.Name,
		"status":      c.Status,
		"customer_id": c.ID,
		"created_at":  time.Now().UTC(),
	}).Exec(ctx)
	return err
}

func writeLinks(ctx context.Context, tx bun.Tx, a association, customerID string, ids []string) error {
	if _, err := tx.NewDelete().Table(a.table).Where("customer_id = ?", customerID).Exec(ctx); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := tx.NewInsert().TableExpr(a.table).Model(&map[string]any{
			"customer_id": customerID,
			a.column:      id,
		}).Exec(ctx); err != nil {
			return apperr.FromStorage(err)
		}
	}
	return nil
}

func linkIndex(ctx context.Context, tx bun.Tx, a association) (map[string][]string, error) {
	var rows []struct {
		CustomerID string `bun:"customer_id"`
		PartnerID  string `bun:"partner_id"`
	}
	err := tx.NewSelect().
		Table(a.table).
		Column("customer_id").
		ColumnExpr("? AS partner_id", bun.Ident(a.column)).
		OrderExpr("?", bun.Ident(a.column)).
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, r := range rows {
		out[r.CustomerID] = append(out[r.CustomerID], r.PartnerID)
	}
	return out, nil
}

func requireCustomer(ctx context.Context, tx bun.Tx, id string) error {
	ok, err := tx.NewSelect().Model((*models.Customer)(nil)).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("customer")
	}
	return nil
}

func normalize(in CustomerInput) (CustomerInput, error) {
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
