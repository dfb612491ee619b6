package equipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/internal/inventory"
	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
)

// Availability is the catalog view used by the allocation UI: the
// equipment row plus its live in-stock count.
type Availability struct {
	ID          uuid.UUID       `json:"id"`
	SN          string          `json:"sn"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Description *string         `json:"description,omitempty"`
	InStock     int64           `json:"in_stock"`
}

// Service exposes read-only catalog lookups.
type Service interface {
	GetAvailability(ctx context.Context, equipmentID uuid.UUID) (*Availability, error)
}

type service struct {
	db        *gorm.DB
	inventory inventory.Repository
}

// NewService builds the equipment lookup service.
func NewService(db *gorm.DB, inv inventory.Repository) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{db: db, inventory: inv}, nil
}

func (s *service) GetAvailability(ctx context.Context, equipmentID uuid.UUID) (*Availability, error) {
	if equipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment id required")
	}

	var equip models.Equipment
	err := s.db.WithContext(ctx).
		Where("id = ?", equipmentID).
		First(&equip).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "equipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load equipment")
	}

	inStock, err := s.inventory.CountInStock(ctx, equipmentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stock")
	}

	return &Availability{
		ID:          equip.ID,
		SN:          equip.SN,
		Name:        equip.Name,
		Brand:       equip.Brand,
		Model:       equip.Model,
		UnitPrice:   equip.UnitPrice,
		Description: equip.Description,
		InStock:     inStock,
	}, nil
}
