package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
)

// Repository owns reads and condition flips on physical items. Every flip
// is a guarded UPDATE: the WHERE clause re-checks the source condition and
// the caller compares RowsAffected against the expected count.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error)
	CountInStock(ctx context.Context, equipmentID uuid.UUID) (int64, error)
	AllocateItems(ctx context.Context, ids []uuid.UUID) (int64, error)
	ReleaseItems(ctx context.Context, ids []uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CountInStock(ctx context.Context, equipmentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("equipment_id = ? AND condition = ?", equipmentID, enums.ItemConditionInStock).
		Count(&count).Error
	return count, err
}

// AllocateItems flips items from in_stock to pending_handout. Items that
// changed condition since the caller looked are left alone, which is how
// a racing allocation loses.
func (r *repository) AllocateItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id IN ? AND condition = ?", ids, enums.ItemConditionInStock).
		Update("condition", enums.ItemConditionPendingHandout)
	return res.RowsAffected, res.Error
}

// ReleaseItems returns pending_handout items to stock.
func (r *repository) ReleaseItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id IN ? AND condition = ?", ids, enums.ItemConditionPendingHandout).
		Update("condition", enums.ItemConditionInStock)
	return res.RowsAffected, res.Error
}
