package schedule

import (
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	openStart  = "T00:00:00"
	openEnd    = "T00:00:01"
)

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339,
}

// ParseTimestamp reads the wall-clock timestamps stored on bookings. Values
// without a zone are taken as-is in UTC so bucketing never shifts a booking
// into a neighbouring hour.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseDate reads a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// IsOpenStart reports whether a start timestamp carries the all-day sentinel.
func IsOpenStart(start string) bool {
	return strings.HasSuffix(start, openStart)
}

// OpenRange returns the sentinel start/end pair for an all-day booking on date.
func OpenRange(date string) (string, string) {
	return date + openStart, date + openEnd
}

// normalizeClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func normalizeClock(s string) (string, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", s)
}
