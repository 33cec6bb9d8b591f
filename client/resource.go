package client

import (
	"context"
	"net/http"
	"net/url"

	"lattice/models"
)

type batchMode int

const (
	// batchLoop creates one row per request.
	batchLoop batchMode = iota
	// batchRows posts an array to the collection and gets the rows back.
	batchRows
	// batchBulk posts an array to <collection>/bulk and gets a count back.
	batchBulk
)

// Resource is the CRUD surface of one collection.
type Resource[T any] struct {
	c     *Client
	path  string
	id    func(T) string
	setID func(*T, string)
	batch batchMode
}

func Bookings(c *Client) *Resource[models.Booking] {
	return &Resource[models.Booking]{
		c: c, path: "/api/bookings", batch: batchRows,
		id:    func(b models.Booking) string { return b.ID },
		setID: func(b *models.Booking, id string) { b.ID = id },
	}
}

func Inventory(c *Client) *Resource[models.InventoryItem] {
	return &Resource[models.InventoryItem]{
		c: c, path: "/api/inventory", batch: batchBulk,
		id:    func(i models.InventoryItem) string { return i.ID },
		setID: func(i *models.InventoryItem, id string) { i.ID = id },
	}
}

func Customers(c *Client) *Resource[models.Customer] {
	return &Resource[models.Customer]{
		c: c, path: "/api/customers",
		id:    func(v models.Customer) string { return v.ID },
		setID: func(v *models.Customer, id string) { v.ID = id },
	}
}

func Suppliers(c *Client) *Resource[models.Supplier] {
	return &Resource[models.Supplier]{
		c: c, path: "/api/suppliers",
		id:    func(v models.Supplier) string { return v.ID },
		setID: func(v *models.Supplier, id string) { v.ID = id },
	}
}

func Hauliers(c *Client) *Resource[models.Haulier] {
	return &Resource[models.Haulier]{
		c: c, path: "/api/hauliers",
		id:    func(v models.Haulier) string { return v.ID },
		setID: func(v *models.Haulier, id string) { v.ID = id },
	}
}

func Contracts(c *Client) *Resource[models.Contract] {
	return &Resource[models.Contract]{
		c: c, path: "/api/contracts",
		id:    func(v models.Contract) string { return v.ID },
		setID: func(v *models.Contract, id string) { v.ID = id },
	}
}

func Orders(c *Client) *Resource[models.Order] {
	return &Resource[models.Order]{
		c: c, path: "/api/orders",
		id:    func(v models.Order) string { return v.ID },
		setID: func(v *models.Order, id string) { v.ID = id },
	}
}

// ID returns the id of v.
func (r *Resource[T]) ID(v T) string { return r.id(v) }

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.c.do(ctx, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Create(ctx context.Context, v T) (T, error) {
	if r.batch == batchRows {
		rows, err := r.CreateMany(ctx, []T{v})
		if err != nil || len(rows) == 0 {
			var zero T
			return zero, err
		}
		return rows[0], nil
	}
	var out T
	err := r.c.do(ctx, http.MethodPost, r.path, v, &out)
	return out, err
}

// CreateMany inserts vs. Collections with a bulk endpoint insert all or
// nothing; the rest are created one by one and stop at the first failure.
func (r *Resource[T]) CreateMany(ctx context.Context, vs []T) ([]T, error) {
	switch r.batch {
	case batchRows:
		var out []T
		if err := r.c.do(ctx, http.MethodPost, r.path, vs, &out); err != nil {
			return nil, err
		}
		return out, nil
	case batchBulk:
		var summary struct {
			Inserted int `json:"inserted"`
		}
		if err := r.c.do(ctx, http.MethodPost, r.path+"/bulk", vs, &summary); err != nil {
			return nil, err
		}
		return append([]T(nil), vs...), nil
	default:
		out := make([]T, 0, len(vs))
		for _, v := range vs {
			created, err := r.Create(ctx, v)
			if err != nil {
				return out, err
			}
			out = append(out, created)
		}
		return out, nil
	}
}

func (r *Resource[T]) Update(ctx context.Context, id string, v T) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), v, &out)
	return out, err
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil)
}
