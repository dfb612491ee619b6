package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// Item is one physical, individually tracked unit of an equipment type.
// EquipmentID never changes; Condition is mutated only by the fulfillment engine.
type Item struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EquipmentID uuid.UUID           `gorm:"column:equipment_id;type:uuid;not null"`
	Condition   enums.ItemCondition `gorm:"column:condition;type:text;not null;default:'in_stock'"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
