package schedule

import (
	"fmt"
	"sort"
	"time"

	"lattice/models"
)

// SettingsKey is the settings row holding the grid configuration.
const SettingsKey = "schedule"

const (
	LayoutStacked      = "stacked"
	LayoutProportional = "proportional"
)

// Settings selects which weekdays and hours the weekly grid shows. EndHour is
// inclusive.
type Settings struct {
	VisibleDays []int `json:"visibleDays"`
	StartHour   int   `json:"startHour"`
	EndHour     int   `json:"endHour"`
}

// DefaultSettings is used when no schedule settings row exists.
func DefaultSettings() Settings {
	return Settings{VisibleDays: []int{1, 2, 3, 4, 5}, StartHour: 6, EndHour: 18}
}

// Validate checks hour bounds and weekday indexes.
func (s Settings) Validate() error {
	if s.StartHour < 0 || s.EndHour > 23 || s.StartHour > s.EndHour {
		return fmt.Errorf("hours must satisfy 0 <= startHour <= endHour <= 23")
	}
	for _, d := range s.VisibleDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("visible day %d out of range 0-6", d)
		}
	}
	return nil
}

// Placement positions one booking inside an hour slot. Top and Height are in
// slot units: 1.0 is one hour row.
type Placement struct {
	Booking models.Booking `json:"booking"`
	Mode    string         `json:"mode"`
	Top     float64        `json:"top"`
	Height  float64        `json:"height"`
}

// Slot is one hour row of a day column.
type Slot struct {
	Hour  int         `json:"hour"`
	Items []Placement `json:"items"`
}

// Day is one visible column of the weekly grid.
type Day struct {
	Date    string           `json:"date"`
	Weekday int              `json:"weekday"`
	Open    []models.Booking `json:"open"`
	Slots   []Slot           `json:"slots"`
}

// Week is the rendered grid for the Sunday-based week containing an anchor date.
type Week struct {
	Start     string `json:"start"`
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
	Days      []Day  `json:"days"`
}

// WeekStart returns the Sunday on or before t, at midnight.
func WeekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// BuildWeek lays out bookings on the configured days and hours of the week
// containing anchor. Bookings outside the visible hours are not placed.
func BuildWeek(anchor time.Time, s Settings, bookings []models.Booking) Week {
	start := WeekStart(anchor)
	buckets := Bucket(bookings)

	days := append([]int(nil), s.VisibleDays...)
	sort.Ints(days)

	week := Week{
		Start:     start.Format(dateLayout),
		StartHour: s.StartHour,
		EndHour:   s.EndHour,
		Days:      make([]Day, 0, len(days)),
	}
	for _, wd := range days {
		date := start.AddDate(0, 0, wd)
		day := Day{
			Date:    date.Format(dateLayout),
			Weekday: wd,
			Open:    buckets.Open[dayKey(date)],
			Slots:   make([]Slot, 0, s.EndHour-s.StartHour+1),
		}
		if day.Open == nil {
			day.Open = []models.Booking{}
		}
		for h := s.StartHour; h <= s.EndHour; h++ {
			key := SlotKey{Year: date.Year(), Month: date.Month(), Day: date.Day(), Hour: h}
			day.Slots = append(day.Slots, Slot{
				Hour:  h,
				Items: LayoutSlot(buckets.Timed[key], h, s.EndHour),
			})
		}
		week.Days = append(week.Days, day)
	}
	return week
}

// LayoutSlot positions the bookings starting in one hour slot. Several
// bookings split the slot into equal stacked rows. A lone booking is sized by
// its duration, clamped to the rows left before endHour closes the grid.
func LayoutSlot(bookings []models.Booking, hour, endHour int) []Placement {
	out := make([]Placement, 0, len(bookings))
	if len(bookings) > 1 {
		share := 1.0 / float64(len(bookings))
		for i, b := range bookings {
			out = append(out, Placement{Booking: b, Mode: LayoutStacked, Top: float64(i) * share, Height: share})
		}
		return out
	}
	for _, b := range bookings {
		start, err := ParseTimestamp(b.StartDateTime)
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(b.EndDateTime)
		if err != nil || end.Before(start) {
			end = start
		}
		top := float64(start.Minute()) / 60
		height := end.Sub(start).Hours()
		if remaining := float64(endHour+1-hour) - top; height > remaining {
			height = remaining
		}
		out = append(out, Placement{Booking: b, Mode: LayoutProportional, Top: top, Height: height})
	}
	return out
}
