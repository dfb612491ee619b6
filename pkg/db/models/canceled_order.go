package models

import (
	"time"

	"github.com/google/uuid"
)

// CanceledOrder is the audit record created exactly once per successful
// cancellation.
type CanceledOrder struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_canceled_orders_order"`
	UserID      uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Description string    `gorm:"column:description;not null"`
	CancelTime  time.Time `gorm:"column:cancel_time;autoCreateTime"`
}
