package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderDetails(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error) {
	var details []models.OrderDetail
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&details).Error
	if err != nil {
		return nil, err
	}
	return details, nil
}

// UpdateOrderStatus flips the order status guarded by the expected current
// status; the caller checks RowsAffected.
func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateOrderDetailsStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderDetailStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderDetail{}).
		Where("order_id = ?", orderID).
		Update("status", status).Error
}

func (r *repository) CreateOrderResponse(ctx context.Context, response *models.OrderResponse) error {
	return r.db.WithContext(ctx).Create(response).Error
}

func (r *repository) CreateOrderDetails(ctx context.Context, details []models.OrderDetail) error {
	if len(details) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&details).Error
}

func (r *repository) CreateItemLogs(ctx context.Context, logs []models.ItemLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&logs).Error
}

func (r *repository) CreateCanceledOrder(ctx context.Context, record *models.CanceledOrder) error {
	return r.db.WithContext(ctx).Create(record).Error
}
