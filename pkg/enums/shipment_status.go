package enums

import "fmt"

// ShipmentStatus tracks the courier leg of a fulfillment.
type ShipmentStatus string

const (
	ShipmentStatusDispatched ShipmentStatus = "Dispatched"
	ShipmentStatusInTransit  ShipmentStatus = "InTransit"
	ShipmentStatusDelivered  ShipmentStatus = "Delivered"
	ShipmentStatusReturned   ShipmentStatus = "Returned"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusDispatched,
	ShipmentStatusInTransit,
	ShipmentStatusDelivered,
	ShipmentStatusReturned,
}

// shipmentTransitions is the closed transition table. Delivered and Returned
// are terminal.
var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusDispatched: {ShipmentStatusInTransit},
	ShipmentStatusInTransit:  {ShipmentStatusDelivered, ShipmentStatusReturned},
	ShipmentStatusDelivered:  {},
	ShipmentStatusReturned:   {},
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no edge leaves the status.
func (s ShipmentStatus) IsTerminal() bool {
	return s.IsValid() && len(shipmentTransitions[s]) == 0
}

// CanTransitionTo reports whether the transition is present in the table.
func (s ShipmentStatus) CanTransitionTo(next ShipmentStatus) bool {
	for _, candidate := range shipmentTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
