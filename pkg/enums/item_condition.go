package enums

import "fmt"

// ItemCondition tracks the physical availability state of an item.
type ItemCondition string

const (
	ItemConditionInStock        ItemCondition = "in_stock"
	ItemConditionPendingHandout ItemCondition = "pending_handout"
	ItemConditionTaken          ItemCondition = "taken"
)

var validItemConditions = []ItemCondition{
	ItemConditionInStock,
	ItemConditionPendingHandout,
	ItemConditionTaken,
}

// itemConditionTransitions is the total transition table for item
// conditions. Only the fulfillment engine mutates conditions.
var itemConditionTransitions = map[ItemCondition][]ItemCondition{
	ItemConditionInStock:        {ItemConditionPendingHandout},
	ItemConditionPendingHandout: {ItemConditionInStock, ItemConditionTaken},
	ItemConditionTaken:          {ItemConditionInStock},
}

// String implements fmt.Stringer.
func (i ItemCondition) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemCondition.
func (i ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == i {
			return true
		}
	}
	return false
}

// CanTransition reports whether the item may move to target.
func (i ItemCondition) CanTransition(target ItemCondition) bool {
	for _, candidate := range itemConditionTransitions[i] {
		if candidate == target {
			return true
		}
	}
	return false
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}
