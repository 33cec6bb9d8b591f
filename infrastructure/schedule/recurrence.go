package schedule

import (
	"sort"
	"time"

	"lattice/infrastructure/apperr"
	"lattice/models"
)

const (
	RepeatNone   = "none"
	RepeatWeekly = "weekly"

	MaxRepeatWeeks = 52
)

// RecurringRequest describes one booking and how it repeats.
type RecurringRequest struct {
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Status          string  `json:"status"`
	ExpectedPallets int     `json:"expectedPallets"`
	CustomerID      *string `json:"customer_id"`
	SupplierID      *string `json:"supplier_id"`
	HaulierID       *string `json:"haulier_id"`
	ContractID      *string `json:"contract_id"`

	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	IsOpen    bool   `json:"isOpen"`

	Repeat       string `json:"repeat"`
	RepeatCount  int    `json:"repeatCount"`
	RepeatOnDays []int  `json:"repeatOnDays"`
}

// Expand turns req into booking instances, one per (week, weekday) pair.
// Instance dates follow firstDate + 7*w + (d - weekday(firstDate)) days, so a
// selected weekday earlier than the first date lands before it in week 0.
// Weekly instances share one series id; newID supplies every id.
func Expand(req RecurringRequest, newID func() string) ([]models.Booking, error) {
	if req.Type == "" {
		return nil, apperr.Validation("type is required")
	}
	if !ValidType(req.Type) {
		return nil, apperr.Validation("unknown booking type %q", req.Type)
	}
	status := req.Status
	if status == "" {
		status = StatusBooked
	}
	if !ValidStatus(req.Type, status) {
		return nil, apperr.Validation("status %q is not valid for %s bookings", status, req.Type)
	}

	first, err := ParseDate(req.Date)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	startClock, endClock := "", ""
	if !req.IsOpen {
		if startClock, err = normalizeClock(req.StartTime); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		if endClock, err = normalizeClock(req.EndTime); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		if endClock < startClock {
			return nil, apperr.Validation("end time must not be before start time")
		}
	}

	weeks := 1
	var seriesID *string
	switch req.Repeat {
	case "", RepeatNone:
	case RepeatWeekly:
		if req.RepeatCount < 1 || req.RepeatCount > MaxRepeatWeeks {
			return nil, apperr.Validation("repeatCount must be between 1 and %d", MaxRepeatWeeks)
		}
		weeks = req.RepeatCount
		id := newID()
		seriesID = &id
	default:
		return nil, apperr.Validation("unknown repeat mode %q", req.Repeat)
	}

	days, err := weekdays(req, first)
	if err != nil {
		return nil, err
	}

	firstWeekday := int(first.Weekday())
	out := make([]models.Booking, 0, weeks*len(days))
	for w := 0; w < weeks; w++ {
		for _, d := range days {
			date := first.AddDate(0, 0, 7*w+(d-firstWeekday)).Format(dateLayout)
			start, end := OpenRange(date)
			if !req.IsOpen {
				start, end = date+"T"+startClock, date+"T"+endClock
			}
			out = append(out, models.Booking{
				ID:              newID(),
				SeriesID:        seriesID,
				Name:            req.Name,
				Type:            req.Type,
				StartDateTime:   start,
				EndDateTime:     end,
				Status:          status,
				ExpectedPallets: req.ExpectedPallets,
				CustomerID:      req.CustomerID,
				SupplierID:      req.SupplierID,
				HaulierID:       req.HaulierID,
				ContractID:      req.ContractID,
			})
		}
	}
	return out, nil
}

func weekdays(req RecurringRequest, first time.Time) ([]int, error) {
	if req.Repeat != RepeatWeekly || len(req.RepeatOnDays) == 0 {
		return []int{int(first.Weekday())}, nil
	}
	seen := make(map[int]struct{}, len(req.RepeatOnDays))
	days := make([]int, 0, len(req.RepeatOnDays))
	for _, d := range req.RepeatOnDays {
		if d < 0 || d > 6 {
			return nil, apperr.Validation("weekday %d out of range 0-6", d)
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Ints(days)
	return days, nil
}
