package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// OrderResponse is the audit record of an administrator's decision on an order.
type OrderResponse struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	AdminID   uuid.UUID           `gorm:"column:admin_id;type:uuid;not null"`
	Reply     enums.DecisionReply `gorm:"column:reply;type:text;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
