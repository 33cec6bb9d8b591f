package contracts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

// ContractInput is the create/update body.
type ContractInput struct {
	Name       string `json:"name"`
	CustomerID string `json:"customer_id"`
}

func selectContracts(tx bun.Tx, dst *[]models.Contract) *bun.SelectQuery {
	return tx.NewSelect().
		Model(dst).
		ColumnExpr("ct.*").
		ColumnExpr("c.name AS customer_name").
		Join("JOIN customers AS c ON c.id = ct.customer_id").
		Order("c.name ASC", "ct.name ASC")
}

func ListContracts(ctx context.Context, db *sqlite.DB) ([]models.Contract, error) {
	list := make([]models.Contract, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return selectContracts(tx, &list).Scan(ctx)
	})
	return list, err
}

func CreateContract(ctx context.Context, db *sqlite.DB, in ContractInput) (models.Contract, error) {
	if err := validate(&in); err != nil {
		return models.Contract{}, err
	}
	id := uuid.NewString()
	var out []models.Contract
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		row := models.Contract{ID: id, Name: in.Name, CustomerID: in.CustomerID, CreatedAt: time.Now().UTC()}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return err
		}
		return selectContracts(tx, &out).Where("ct.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return models.Contract{}, apperr.FromStorage(err)
	}
	return out[0], nil
}

func UpdateContract(ctx context.Context, db *sqlite.DB, id string, in ContractInput) (models.Contract, error) {
	if err := validate(&in); err != nil {
		return models.Contract{}, err
	}
	var out []models.Contract
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model((*models.Contract)(nil)).
			Set("name = ?", in.Name).
			Set("customer_id = ?", in.CustomerID).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := apperr.ExpectAffected(res, "contract"); err != nil {
			return err
		}
		return selectContracts(tx, &out).Where("ct.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return models.Contract{}, apperr.FromStorage(err)
	}
	return out[0], nil
}

// DeleteContract removes the contract; bookings that used it keep a NULL
// contract reference.
func DeleteContract(ctx context.Context, db *sqlite.DB, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.Contract)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return apperr.ExpectAffected(res, "contract")
	})
}

func validate(in *ContractInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	if in.Name == "" || in.CustomerID == "" {
		return apperr.Validation("name and customer_id are required")
	}
	return nil
}
