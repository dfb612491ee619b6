package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/pkg/db/models"
)

// Repository covers order persistence for intake and read paths.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderWithDetails(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, query listQuery) ([]models.Order, error)
	ListPending(ctx context.Context, limit int) ([]models.Order, error)
}
