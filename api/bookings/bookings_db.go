package bookings

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"lattice/infrastructure/apperr"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/schedule"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

func selectBookings(tx bun.Tx, dst *[]models.Booking) *bun.SelectQuery {
	return tx.NewSelect().
		Model(dst).
		ColumnExpr("b.*").
		ColumnExpr("ct.name AS contract_name").
		Join("LEFT JOIN contracts AS ct ON ct.id = b.contract_id").
		Order("b.start_date_time ASC", "b.id ASC")
}

// ListBookings returns every booking with its contract name.
func ListBookings(ctx context.Context, db *sqlite.DB) ([]models.Booking, error) {
	list := make([]models.Booking, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return selectBookings(tx, &list).Scan(ctx)
	})
	return list, err
}

// ListBookingsBetween returns bookings starting in [from, to). Bounds are
// stored-format timestamps, compared as text.
func ListBookingsBetween(ctx context.Context, db *sqlite.DB, from, to string) ([]models.Booking, error) {
	list := make([]models.Booking, 0)
	err := db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return selectBookings(tx, &list).
			Where("b.start_date_time >= ?", from).
			Where("b.start_date_time < ?", to).
			Scan(ctx)
	})
	return list, err
}

// CreateBookings inserts the batch in one transaction. Missing ids and
// statuses are filled in; any invalid row rejects the whole batch.
func CreateBookings(ctx context.Context, db *sqlite.DB, batch []models.Booking) ([]models.Booking, error) {
	now := time.Now().UTC()
	for i := range batch {
		b := &batch[i]
		if strings.TrimSpace(b.ID) == "" {
			b.ID = uuid.NewString()
		}
		if b.Status == "" {
			b.Status = schedule.StatusBooked
		}
		if err := validateBooking(b); err != nil {
			return nil, err
		}
		b.CreatedAt, b.UpdatedAt = now, now
		b.ContractName = ""
	}
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&batch).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, apperr.FromStorage(err)
	}
	return batch, nil
}

// CreateSeries expands req and stores every instance in one transaction.
func CreateSeries(ctx context.Context, db *sqlite.DB, req schedule.RecurringRequest) ([]models.Booking, error) {
	batch, err := schedule.Expand(req, uuid.NewString)
	if err != nil {
		return nil, err
	}
	return CreateBookings(ctx, db, batch)
}

// UpdateBooking replaces every column of the booking with id.
func UpdateBooking(ctx context.Context, db *sqlite.DB, id string, b models.Booking) (models.Booking, error) {
	if b.Status == "" {
		b.Status = schedule.StatusBooked
	}
	if err := validateBooking(&b); err != nil {
		return models.Booking{}, err
	}
	b.ID = id
	b.UpdatedAt = time.Now().UTC()

	var out []models.Booking
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(&b).
			Column("series_id", "name", "type", "start_date_time", "end_date_time", "status",
				"expected_pallets", "customer_id", "supplier_id", "haulier_id", "contract_id", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := apperr.ExpectAffected(res, "booking"); err != nil {
			return err
		}
		return selectBookings(tx, &out).Where("b.id = ?", id).Scan(ctx)
	})
	if err != nil {
		return models.Booking{}, apperr.FromStorage(err)
	}
	return out[0], nil
}

func DeleteBooking(ctx context.Context, db *sqlite.DB, id string) error {
	return db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.Booking)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		return apperr.ExpectAffected(res, "booking")
	})
}

// DeleteSeries removes every instance sharing seriesID.
func DeleteSeries(ctx context.Context, db *sqlite.DB, seriesID string) (int64, error) {
	var n int64
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.Booking)(nil)).Where("series_id = ?", seriesID).Exec(ctx)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("series")
		}
		return nil
	})
	return n, err
}

// DeleteAllBookings empties the bookings table and records who did it.
func DeleteAllBookings(ctx context.Context, db *sqlite.DB, auditSvc *audit.Service, actorID string) (int64, error) {
	var n int64
	err := db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().Model((*models.Booking)(nil)).Where("1 = 1").Exec(ctx)
		if err != nil {
			return err
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		return auditSvc.Write(ctx, tx, actorID, audit.ActionDeleteAll, "booking", "*", nil, map[string]int64{"deleted": n})
	})
	return n, err
}

func validateBooking(b *models.Booking) error {
	if b.Type == "" || b.StartDateTime == "" || b.EndDateTime == "" {
		return apperr.Validation("type, startDateTime and endDateTime are required")
	}
	if !schedule.ValidType(b.Type) {
		return apperr.Validation("unknown booking type %q", b.Type)
	}
	if !schedule.ValidStatus(b.Type, b.Status) {
		return apperr.Validation("status %q is not valid for %s bookings", b.Status, b.Type)
	}
	start, err := schedule.ParseTimestamp(b.StartDateTime)
	if err != nil {
		return apperr.Validation("%s", err.Error())
	}
	end, err := schedule.ParseTimestamp(b.EndDateTime)
	if err != nil {
		return apperr.Validation("%s", err.Error())
	}
	if end.Before(start) {
		return apperr.Validation("endDateTime must not be before startDateTime")
	}
	if b.ExpectedPallets < 0 {
		return apperr.Validation("expectedPallets must not be negative")
	}
	return nil
}
