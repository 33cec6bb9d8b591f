// Package partners serves the supplier and haulier directories. Both tables
// share one shape, so one generic implementation backs both routes.
package partners

import (
	"time"

	"lattice/models"
)

// PartnerInput is the create/update body.
type PartnerInput struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Kind binds the generic handlers to one partner table.
type Kind[T any] struct {
	Entity string
	Table  string
	build  func(id string, in PartnerInput, now time.Time) T
	link   func(T) *string
}

var Suppliers = Kind[models.Supplier]{
	Entity: "supplier",
	Table:  "suppliers",
	build: func(id string, in PartnerInput, now time.Time) models.Supplier {
		return models.Supplier{ID: id, Name: in.Name, Status: in.Status, CreatedAt: now}
	},
	link: func(s models.Supplier) *string { return s.CustomerID },
}

var Hauliers = Kind[models.Haulier]{
	Entity: "haulier",
	Table:  "hauliers",
	build: func(id string, in PartnerInput, now time.Time) models.Haulier {
		return models.Haulier{ID: id, Name: in.Name, Status: in.Status, CreatedAt: now}
	},
	link: func(h models.Haulier) *string { return h.CustomerID },
}

// flagColumn is the customers column that mirrors this kind.
func (k Kind[T]) flagColumn() string {
	if k.Table == Hauliers.Table {
		return "also_haulier"
	}
	return "also_supplier"
}
