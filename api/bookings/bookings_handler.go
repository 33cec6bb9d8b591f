package bookings

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	reqctx "lattice/api/shared/context"
	"lattice/api/shared/response"
	"lattice/infrastructure/audit"
	"lattice/infrastructure/events"
	"lattice/infrastructure/schedule"
	"lattice/infrastructure/sqlite"
	"lattice/models"
)

// Notifier is told after every committed booking change.
type Notifier interface {
	Broadcast(eventType string)
}

func ListBookingsHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := ListBookings(r.Context(), db)
		if err != nil {
			zap.L().Error("bookings: list failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, list)
	}
}

// CreateBookingsHandler accepts a non-empty array of bookings.
func CreateBookingsHandler(db *sqlite.DB, notify Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batch, err := response.DecodeArray[models.Booking](r, "Request body must be an array of bookings.")
		if err != nil {
			response.Error(w, err)
			return
		}
		created, err := CreateBookings(r.Context(), db, batch)
		if err != nil {
			response.Error(w, err)
			return
		}
		notify.Broadcast(events.BookingsChanged)
		response.JSON(w, http.StatusCreated, created)
	}
}

func CreateSeriesHandler(db *sqlite.DB, notify Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req schedule.RecurringRequest
		if err := response.DecodeJSON(r, &req); err != nil {
			response.Error(w, err)
			return
		}
		created, err := CreateSeries(r.Context(), db, req)
		if err != nil {
			response.Error(w, err)
			return
		}
		notify.Broadcast(events.BookingsChanged)
		response.JSON(w, http.StatusCreated, created)
	}
}

func UpdateBookingHandler(db *sqlite.DB, notify Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b models.Booking
		if err := response.DecodeJSON(r, &b); err != nil {
			response.Error(w, err)
			return
		}
		updated, err := UpdateBooking(r.Context(), db, chi.URLParam(r, "id"), b)
		if err != nil {
			response.Error(w, err)
			return
		}
		notify.Broadcast(events.BookingsChanged)
		response.JSON(w, http.StatusOK, updated)
	}
}

func DeleteBookingHandler(db *sqlite.DB, notify Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := DeleteBooking(r.Context(), db, chi.URLParam(r, "id")); err != nil {
			response.Error(w, err)
			return
		}
		notify.Broadcast(events.BookingsChanged)
		response.NoContent(w)
	}
}

func DeleteSeriesHandler(db *sqlite.DB, notify Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := DeleteSeries(r.Context(), db, chi.URLParam(r, "seriesId"))
		if err != nil {
			response.Error(w, err)
			return
		}
		notify.Broadcast(events.BookingsChanged)
		response.Deleted(w, n)
	}
}

func DeleteAllBookingsHandler(db *sqlite.DB, auditSvc *audit.Service, notify Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, _ := reqctx.GetIdentityFromContext(r.Context())
		n, err := DeleteAllBookings(r.Context(), db, auditSvc, identity.ID)
		if err != nil {
			zap.L().Error("bookings: delete all failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		zap.L().Warn("bookings: deleted all", zap.Int64("deleted", n), zap.String("user_id", identity.ID))
		notify.Broadcast(events.BookingsChanged)
		response.Deleted(w, n)
	}
}
