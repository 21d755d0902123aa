package enums

import "fmt"

// ReservationStatus tracks a time-boxed stock hold. Consumed, Released and
// Expired are terminal.
type ReservationStatus string

const (
	ReservationStatusActive   ReservationStatus = "Active"
	ReservationStatusConsumed ReservationStatus = "Consumed"
	ReservationStatusReleased ReservationStatus = "Released"
	ReservationStatusExpired  ReservationStatus = "Expired"
)

var validReservationStatuses = []ReservationStatus{
	ReservationStatusActive,
	ReservationStatusConsumed,
	ReservationStatusReleased,
	ReservationStatusExpired,
}

// String implements fmt.Stringer.
func (r ReservationStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReservationStatus.
func (r ReservationStatus) IsValid() bool {
	for _, candidate := range validReservationStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the hold can no longer change state.
func (r ReservationStatus) IsTerminal() bool {
	return r.IsValid() && r != ReservationStatusActive
}

// ParseReservationStatus converts raw input into a ReservationStatus.
func ParseReservationStatus(value string) (ReservationStatus, error) {
	for _, candidate := range validReservationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reservation status %q", value)
}
