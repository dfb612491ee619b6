package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// OrderDetail binds one physical item to one approved order. Exactly one
// row exists per (order, item) pair; rows are superseded by status changes,
// never deleted.
type OrderDetail struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_order_details_order_item"`
	ItemID    uuid.UUID               `gorm:"column:item_id;type:uuid;not null;uniqueIndex:ux_order_details_order_item"`
	Status    enums.OrderDetailStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Item      *Item                   `gorm:"foreignKey:ItemID"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
