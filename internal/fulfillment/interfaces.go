package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// Repository covers the order-side writes of the fulfillment engine. Item
// condition flips live in the inventory repository.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderDetails(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	UpdateOrderDetailsStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderDetailStatus) error
	CreateOrderResponse(ctx context.Context, response *models.OrderResponse) error
	CreateOrderDetails(ctx context.Context, details []models.OrderDetail) error
	CreateItemLogs(ctx context.Context, logs []models.ItemLog) error
	CreateCanceledOrder(ctx context.Context, record *models.CanceledOrder) error
}
