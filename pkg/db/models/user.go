package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a requesting user reference, joined into order views for the
// username. Account management is owned by another system.
type User struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username  string    `gorm:"column:username;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
