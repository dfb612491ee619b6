package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// OrderCreatedEvent signals a new loan request entering the approval queue.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	UserID      uuid.UUID `json:"user_id"`
	EquipmentID uuid.UUID `json:"equipment_id"`
	Quantity    int       `json:"quantity"`
	Day         int       `json:"day"`
	OrderTime   time.Time `json:"order_time"`
}

// OrderDecisionEvent is emitted when an admin approves or denies an order.
type OrderDecisionEvent struct {
	OrderID     uuid.UUID           `json:"order_id"`
	UserID      uuid.UUID           `json:"user_id"`
	EquipmentID uuid.UUID           `json:"equipment_id"`
	AdminID     uuid.UUID           `json:"admin_id"`
	Reply       enums.DecisionReply `json:"reply"`
	Status      enums.OrderStatus   `json:"status"`
	ItemIDs     []uuid.UUID         `json:"item_ids,omitempty"`
	Condition   enums.ItemCondition `json:"item_condition,omitempty"`
}

// OrderCanceledEvent is emitted whenever an admin cancels an approved order.
type OrderCanceledEvent struct {
	OrderID       uuid.UUID   `json:"order_id"`
	UserID        uuid.UUID   `json:"user_id"`
	AdminID       uuid.UUID   `json:"admin_id"`
	ReleasedItems []uuid.UUID `json:"released_item_ids"`
	CanceledAt    time.Time   `json:"canceled_at"`
	Reason        string      `json:"reason,omitempty"`
}
