package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Equipment is one catalog entry. The catalog's own lifecycle is owned by
// another system; this service only reads it.
type Equipment struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SN          string          `gorm:"column:sn;not null"`
	Name        string          `gorm:"column:name;not null"`
	Brand       string          `gorm:"column:brand;not null"`
	Model       string          `gorm:"column:model;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	Description *string         `gorm:"column:description"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
