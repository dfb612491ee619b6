package enums

import "fmt"

// OrderStatus tracks the lifecycle of a loan order.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusDenied   OrderStatus = "denied"
	OrderStatusCanceled OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusDenied,
	OrderStatusCanceled,
}

// orderStatusTransitions is the total transition table: absent keys are
// terminal for the fulfillment engine.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusApproved, OrderStatusDenied},
	OrderStatusApproved: {OrderStatusCanceled},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// CanTransition reports whether the order is allowed to move to target.
func (o OrderStatus) CanTransition(target OrderStatus) bool {
	for _, candidate := range orderStatusTransitions[o] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
