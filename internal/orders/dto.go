package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// CreateOrderInput carries the caller-controlled fields of a new order.
// Status and order time are never taken from the caller.
type CreateOrderInput struct {
	UserID              uuid.UUID
	EquipmentID         uuid.UUID
	Quantity            int
	EstimatedPickupTime time.Time
	Day                 int
}

// EquipmentSummary is the catalog slice shown alongside an order.
type EquipmentSummary struct {
	ID        uuid.UUID       `json:"id"`
	SN        string          `json:"sn"`
	Name      string          `json:"name"`
	Brand     string          `json:"brand"`
	Model     string          `json:"model"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderSummary is one row of an order listing.
type OrderSummary struct {
	ID                  uuid.UUID         `json:"id"`
	UserID              uuid.UUID         `json:"user_id"`
	EquipmentID         uuid.UUID         `json:"equipment_id"`
	Equipment           *EquipmentSummary `json:"equipment,omitempty"`
	Quantity            int               `json:"quantity"`
	Day                 int               `json:"day"`
	Status              enums.OrderStatus `json:"status"`
	OrderTime           time.Time         `json:"order_time"`
	EstimatedPickupTime time.Time         `json:"estimated_pickup_time"`
}

// OrderDetailLine is one allocated item on an order.
type OrderDetailLine struct {
	ID            uuid.UUID               `json:"id"`
	ItemID        uuid.UUID               `json:"item_id"`
	Status        enums.OrderDetailStatus `json:"status"`
	ItemCondition enums.ItemCondition     `json:"item_condition,omitempty"`
}

// OrderView is the full order representation including allocations and
// the requesting user's name.
type OrderView struct {
	OrderSummary
	Username string            `json:"username,omitempty"`
	Details  []OrderDetailLine `json:"details"`
}

func summarize(order models.Order) OrderSummary {
	summary := OrderSummary{
		ID:                  order.ID,
		UserID:              order.UserID,
		EquipmentID:         order.EquipmentID,
		Quantity:            order.Quantity,
		Day:                 order.Day,
		Status:              order.Status,
		OrderTime:           order.OrderTime,
		EstimatedPickupTime: order.EstimatedPickupTime,
	}
	if order.Equipment != nil {
		summary.Equipment = &EquipmentSummary{
			ID:        order.Equipment.ID,
			SN:        order.Equipment.SN,
			Name:      order.Equipment.Name,
			Brand:     order.Equipment.Brand,
			Model:     order.Equipment.Model,
			UnitPrice: order.Equipment.UnitPrice,
		}
	}
	return summary
}

func buildView(order models.Order) OrderView {
	view := OrderView{
		OrderSummary: summarize(order),
		Details:      make([]OrderDetailLine, 0, len(order.Details)),
	}
	if order.User != nil {
		view.Username = order.User.Username
	}
	for _, detail := range order.Details {
		line := OrderDetailLine{
			ID:     detail.ID,
			ItemID: detail.ItemID,
			Status: detail.Status,
		}
		if detail.Item != nil {
			line.ItemCondition = detail.Item.Condition
		}
		view.Details = append(view.Details, line)
	}
	return view
}
