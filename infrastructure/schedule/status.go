package schedule

const (
	TypeInbound  = "Inbound"
	TypeOutbound = "Outbound"

	StatusBooked    = "Booked"
	StatusArrived   = "Arrived"
	StatusAllocated = "Allocated"
	StatusPicked    = "Picked"
	StatusCompleted = "Completed"
)

var vocabulary = map[string][]string{
	TypeInbound:  {StatusBooked, StatusArrived, StatusCompleted},
	TypeOutbound: {StatusBooked, StatusAllocated, StatusPicked, StatusCompleted},
}

// Statuses lists the selectable statuses for a booking type in lifecycle
// order. Any of them may be chosen regardless of the current status.
func Statuses(bookingType string) []string {
	return append([]string(nil), vocabulary[bookingType]...)
}

// ValidType reports whether t is a known booking type.
func ValidType(t string) bool {
	_, ok := vocabulary[t]
	return ok
}

// ValidStatus reports whether status belongs to the vocabulary of bookingType.
func ValidStatus(bookingType, status string) bool {
	for _, s := range vocabulary[bookingType] {
		if s == status {
			return true
		}
	}
	return false
}
