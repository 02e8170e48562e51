package enums

import "fmt"

// ShipmentStatus tracks the lifecycle stage of a placed order.
type ShipmentStatus string

const (
	ShipmentStatusPending    ShipmentStatus = "pending"
	ShipmentStatusProcessing ShipmentStatus = "processing"
	ShipmentStatusShipped    ShipmentStatus = "shipped"
	ShipmentStatusDelivered  ShipmentStatus = "delivered"
	ShipmentStatusCancelled  ShipmentStatus = "cancelled"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusPending,
	ShipmentStatusProcessing,
	ShipmentStatusShipped,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
}

// forward order of the non-cancelled path; cancelled sits outside it.
var shipmentRank = map[ShipmentStatus]int{
	ShipmentStatusPending:    0,
	ShipmentStatusProcessing: 1,
	ShipmentStatusShipped:    2,
	ShipmentStatusDelivered:  3,
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

// IsCancellable reports whether a buyer may still cancel an order in this status.
func (s ShipmentStatus) IsCancellable() bool {
	return s == ShipmentStatusPending || s == ShipmentStatusProcessing
}

// IsTerminal reports whether no further transition can leave this status.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusCancelled
}

// CanTransition reports whether from -> to is allowed: forward only along
// pending, processing, shipped, delivered, plus the side exit into cancelled.
func CanTransition(from, to ShipmentStatus) bool {
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if to == ShipmentStatusCancelled {
		return from.IsCancellable()
	}
	fromRank, ok := shipmentRank[from]
	if !ok {
		return false
	}
	return shipmentRank[to] == fromRank+1
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
