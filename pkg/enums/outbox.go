package enums

import "fmt"

// OutboxStatus tracks delivery of a queued integration event.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

var validOutboxStatuses = []OutboxStatus{
	OutboxStatusPending,
	OutboxStatusPublished,
	OutboxStatusFailed,
}

// IsValid reports whether the value is a known OutboxStatus.
func (o OutboxStatus) IsValid() bool {
	for _, candidate := range validOutboxStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// OutboxEventType names the integration events this core emits.
type OutboxEventType string

const (
	OutboxEventOrderPaid          OutboxEventType = "order.paid"
	OutboxEventOrderCancelled     OutboxEventType = "order.cancelled"
	OutboxEventOrderRefundLogged  OutboxEventType = "order.refund_logged"
	OutboxEventShipmentDispatched OutboxEventType = "shipment.dispatched"
	OutboxEventShipmentDelivered  OutboxEventType = "shipment.delivered"
	OutboxEventShipmentReturned   OutboxEventType = "shipment.returned"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventOrderPaid,
	OutboxEventOrderCancelled,
	OutboxEventOrderRefundLogged,
	OutboxEventShipmentDispatched,
	OutboxEventShipmentDelivered,
	OutboxEventShipmentReturned,
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
