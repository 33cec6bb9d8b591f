package schedule

import (
	"sort"
	"time"

	"lattice/models"
)

// SlotKey identifies one hour cell of the calendar.
type SlotKey struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

// DayKey identifies one calendar day.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// Buckets groups bookings for grid rendering. Open bookings live only in
// Open and never appear in Timed.
type Buckets struct {
	Timed map[SlotKey][]models.Booking
	Open  map[DayKey][]models.Booking
}

func dayKey(t time.Time) DayKey {
	return DayKey{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Bucket assigns each booking to the hour of its start timestamp, or to its
// day when it is an open booking. Bookings with unreadable timestamps are
// skipped. Each bucket is ordered by start time, then id.
func Bucket(bookings []models.Booking) Buckets {
	b := Buckets{
		Timed: make(map[SlotKey][]models.Booking),
		Open:  make(map[DayKey][]models.Booking),
	}
	for _, bk := range bookings {
		start, err := ParseTimestamp(bk.StartDateTime)
		if err != nil {
			continue
		}
		if IsOpenStart(bk.StartDateTime) {
			k := dayKey(start)
			b.Open[k] = append(b.Open[k], bk)
			continue
		}
		k := SlotKey{Year: start.Year(), Month: start.Month(), Day: start.Day(), Hour: start.Hour()}
		b.Timed[k] = append(b.Timed[k], bk)
	}
	for k := range b.Timed {
		sortByStart(b.Timed[k])
	}
	for k := range b.Open {
		sortByStart(b.Open[k])
	}
	return b
}

func sortByStart(list []models.Booking) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].StartDateTime != list[j].StartDateTime {
			return list[i].StartDateTime < list[j].StartDateTime
		}
		return list[i].ID < list[j].ID
	})
}
