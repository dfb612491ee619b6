package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/ian1hx/equiploan-backend/pkg/db"
	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/outbox"
	"github.com/ian1hx/equiploan-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines order intake and read operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderSummary, error)
	ListUserOrders(ctx context.Context, params ListParams) (*ListResult, error)
	ListPendingOrders(ctx context.Context, limit int) ([]OrderSummary, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderView, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderSummary, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.EquipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "equipment id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.EstimatedPickupTime.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated pickup time required")
	}
	if input.Day < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "loan duration must be at least 1 day")
	}

	order := &models.Order{
		ID:                  uuid.New(),
		UserID:              input.UserID,
		EquipmentID:         input.EquipmentID,
		Quantity:            input.Quantity,
		EstimatedPickupTime: input.EstimatedPickupTime,
		Day:                 input.Day,
		Status:              enums.OrderStatusPending,
		OrderTime:           time.Now().UTC(),
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		created, err := repo.CreateOrder(ctx, order)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "order could not be saved")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		order = created

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{SubjectID: input.UserID, Role: string(enums.ActorRoleUser)},
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				UserID:      order.UserID,
				EquipmentID: order.EquipmentID,
				Quantity:    order.Quantity,
				Day:         order.Day,
				OrderTime:   order.OrderTime,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}

	summary := summarize(*order)
	return &summary, nil
}

func (s *service) ListPendingOrders(ctx context.Context, limit int) ([]OrderSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	rows, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending orders")
	}
	summaries := make([]OrderSummary, len(rows))
	for i, row := range rows {
		summaries[i] = summarize(row)
	}
	return summaries, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderWithDetails(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := buildView(*order)
	return &view, nil
}
