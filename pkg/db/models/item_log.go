package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// ItemLog is the append-only audit record of an item's condition change.
// Rows are never updated or deleted.
type ItemLog struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderDetailID uuid.UUID           `gorm:"column:order_detail_id;type:uuid;not null"`
	AdminID       uuid.UUID           `gorm:"column:admin_id;type:uuid;not null"`
	ItemID        uuid.UUID           `gorm:"column:item_id;type:uuid;not null"`
	Condition     enums.ItemCondition `gorm:"column:condition;type:text;not null"`
	Description   *string             `gorm:"column:description"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
