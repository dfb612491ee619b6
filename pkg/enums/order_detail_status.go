package enums

import "fmt"

// OrderDetailStatus tracks the binding state of one item within an order.
type OrderDetailStatus string

const (
	OrderDetailStatusPending  OrderDetailStatus = "pending"
	OrderDetailStatusTaken    OrderDetailStatus = "taken"
	OrderDetailStatusCanceled OrderDetailStatus = "canceled"
)

var validOrderDetailStatuses = []OrderDetailStatus{
	OrderDetailStatusPending,
	OrderDetailStatusTaken,
	OrderDetailStatusCanceled,
}

var orderDetailStatusTransitions = map[OrderDetailStatus][]OrderDetailStatus{
	OrderDetailStatusPending: {OrderDetailStatusTaken, OrderDetailStatusCanceled},
}

// String implements fmt.Stringer.
func (o OrderDetailStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderDetailStatus.
func (o OrderDetailStatus) IsValid() bool {
	for _, candidate := range validOrderDetailStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// CanTransition reports whether the detail may move to target.
func (o OrderDetailStatus) CanTransition(target OrderDetailStatus) bool {
	for _, candidate := range orderDetailStatusTransitions[o] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseOrderDetailStatus converts raw input into an OrderDetailStatus.
func ParseOrderDetailStatus(value string) (OrderDetailStatus, error) {
	for _, candidate := range validOrderDetailStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order detail status %q", value)
}
