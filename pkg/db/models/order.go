package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// Order is one user's request for a quantity of an equipment type.
// Quantity is fixed at creation and never changed after allocation.
type Order struct {
	ID                  uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	EquipmentID         uuid.UUID         `gorm:"column:equipment_id;type:uuid;not null"`
	Quantity            int               `gorm:"column:quantity;not null"`
	EstimatedPickupTime time.Time         `gorm:"column:estimated_pickup_time;not null"`
	Day                 int               `gorm:"column:day;not null"`
	Status              enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderTime           time.Time         `gorm:"column:order_time;autoCreateTime"`
	Details             []OrderDetail     `gorm:"foreignKey:OrderID"`
	Equipment           *Equipment        `gorm:"foreignKey:EquipmentID"`
	User                *User             `gorm:"foreignKey:UserID"`
	CreatedAt           time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
