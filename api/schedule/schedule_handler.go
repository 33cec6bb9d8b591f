package schedule

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"lattice/api/bookings"
	"lattice/api/settings"
	"lattice/api/shared/response"
	"lattice/infrastructure/apperr"
	sched "lattice/infrastructure/schedule"
	"lattice/infrastructure/sqlite"
)

const stampLayout = "2006-01-02T15:04:05"

// LoadWeek builds the grid for the week containing anchor using the saved
// schedule settings.
func LoadWeek(ctx context.Context, db *sqlite.DB, anchor time.Time) (sched.Week, error) {
	s, err := settings.LoadScheduleSettings(ctx, db)
	if err != nil {
		return sched.Week{}, err
	}
	start := sched.WeekStart(anchor)
	list, err := bookings.ListBookingsBetween(ctx, db,
		start.Format(stampLayout), start.AddDate(0, 0, 7).Format(stampLayout))
	if err != nil {
		return sched.Week{}, err
	}
	return sched.BuildWeek(anchor, s, list), nil
}

// WeekHandler serves the weekly grid for ?date=YYYY-MM-DD, defaulting to today.
func WeekHandler(db *sqlite.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		anchor := time.Now().UTC()
		if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
			d, err := sched.ParseDate(raw)
			if err != nil {
				response.Error(w, apperr.Validation("%s", err.Error()))
				return
			}
			anchor = d
		}
		week, err := LoadWeek(r.Context(), db, anchor)
		if err != nil {
			zap.L().Error("schedule: build week failed", zap.Error(err))
			response.Error(w, err)
			return
		}
		response.JSON(w, http.StatusOK, week)
	}
}
