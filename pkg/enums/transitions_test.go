package enums

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusPending, OrderStatusApproved, true},
		{OrderStatusPending, OrderStatusDenied, true},
		{OrderStatusPending, OrderStatusCanceled, false},
		{OrderStatusApproved, OrderStatusCanceled, true},
		{OrderStatusApproved, OrderStatusDenied, false},
		{OrderStatusApproved, OrderStatusPending, false},
		{OrderStatusDenied, OrderStatusApproved, false},
		{OrderStatusDenied, OrderStatusCanceled, false},
		{OrderStatusCanceled, OrderStatusApproved, false},
		{OrderStatusCanceled, OrderStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestItemConditionTransitions(t *testing.T) {
	cases := []struct {
		from    ItemCondition
		to      ItemCondition
		allowed bool
	}{
		{ItemConditionInStock, ItemConditionPendingHandout, true},
		{ItemConditionInStock, ItemConditionTaken, false},
		{ItemConditionPendingHandout, ItemConditionInStock, true},
		{ItemConditionPendingHandout, ItemConditionTaken, true},
		{ItemConditionTaken, ItemConditionInStock, true},
		{ItemConditionTaken, ItemConditionPendingHandout, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestOrderDetailStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderDetailStatus
		to      OrderDetailStatus
		allowed bool
	}{
		{OrderDetailStatusPending, OrderDetailStatusTaken, true},
		{OrderDetailStatusPending, OrderDetailStatusCanceled, true},
		{OrderDetailStatusTaken, OrderDetailStatusPending, false},
		{OrderDetailStatusTaken, OrderDetailStatusCanceled, false},
		{OrderDetailStatusCanceled, OrderDetailStatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestParseDecisionReply(t *testing.T) {
	if _, err := ParseDecisionReply("approve"); err != nil {
		t.Fatalf("approve must parse: %v", err)
	}
	if _, err := ParseDecisionReply("deny"); err != nil {
		t.Fatalf("deny must parse: %v", err)
	}
	for _, raw := range []string{"", "maybe", "APPROVE", "approved"} {
		if _, err := ParseDecisionReply(raw); err == nil {
			t.Errorf("%q must be rejected", raw)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	for _, status := range validOrderStatuses {
		parsed, err := ParseOrderStatus(string(status))
		if err != nil || parsed != status {
			t.Errorf("%s must round-trip, got %v %v", status, parsed, err)
		}
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Error("unknown status must be rejected")
	}
}
