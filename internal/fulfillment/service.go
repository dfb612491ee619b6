package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/internal/inventory"
	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/metrics"
	"github.com/ian1hx/equiploan-backend/pkg/outbox"
	"github.com/ian1hx/equiploan-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the allocation decision and cancellation engine. Every
// operation runs inside a single transaction; a failure anywhere leaves
// the pre-call state intact.
type Service interface {
	Decide(ctx context.Context, input DecideInput) error
	Cancel(ctx context.Context, input CancelInput) error
}

// DecideInput carries an admin's decision on a pending order. ItemIDs is
// only consulted when the reply is approve.
type DecideInput struct {
	OrderID uuid.UUID
	AdminID uuid.UUID
	Reply   enums.DecisionReply
	ItemIDs []uuid.UUID
}

// CancelInput carries an admin's cancellation of an approved order.
type CancelInput struct {
	OrderID uuid.UUID
	AdminID uuid.UUID
	Reason  string
}

type service struct {
	repo      Repository
	inventory inventory.Repository
	tx        txRunner
	outbox    outboxPublisher
	metrics   *metrics.FulfillmentMetrics
}

// NewService builds the fulfillment engine with the required dependencies.
func NewService(repo Repository, inv inventory.Repository, tx txRunner, outbox outboxPublisher, m *metrics.FulfillmentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		inventory: inv,
		tx:        tx,
		outbox:    outbox,
		metrics:   m,
	}, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) error {
	start := time.Now()
	err := s.decide(ctx, input)
	s.observe("decide", start, err)
	if err == nil {
		s.metrics.IncDecision(string(input.Reply))
	}
	return err
}

func (s *service) decide(ctx context.Context, input DecideInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AdminID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if !input.Reply.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "reply must be approve or deny")
	}

	itemIDs := dedupeIDs(input.ItemIDs)

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inventory.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status != enums.OrderStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already decided")
		}

		if input.Reply == enums.DecisionReplyDeny {
			return s.deny(ctx, tx, repo, order, input.AdminID)
		}
		return s.approve(ctx, tx, repo, inv, order, input.AdminID, itemIDs)
	})
}

func (s *service) deny(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, adminID uuid.UUID) error {
	response := &models.OrderResponse{
		ID:      uuid.New(),
		OrderID: order.ID,
		AdminID: adminID,
		Reply:   enums.DecisionReplyDeny,
	}
	if err := repo.CreateOrderResponse(ctx, response); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record decision")
	}

	if err := s.transitionOrder(ctx, repo, order, enums.OrderStatusDenied); err != nil {
		return err
	}

	return s.emitDecision(ctx, tx, order, adminID, enums.DecisionReplyDeny, nil)
}

func (s *service) approve(ctx context.Context, tx *gorm.DB, repo Repository, inv inventory.Repository, order *models.Order, adminID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) != order.Quantity {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("exactly %d distinct item ids required", order.Quantity))
	}

	items, err := inv.FindItemsByIDs(ctx, itemIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load items")
	}
	if len(items) != len(itemIDs) {
		return pkgerrors.New(pkgerrors.CodeValidation, "one or more items do not exist")
	}
	for _, item := range items {
		if item.EquipmentID != order.EquipmentID {
			return pkgerrors.New(pkgerrors.CodeValidation, "item does not match the ordered equipment type")
		}
	}

	inStock, err := inv.CountInStock(ctx, order.EquipmentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count stock")
	}
	if inStock < int64(order.Quantity) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock for this equipment")
	}

	response := &models.OrderResponse{
		ID:      uuid.New(),
		OrderID: order.ID,
		AdminID: adminID,
		Reply:   enums.DecisionReplyApprove,
	}
	if err := repo.CreateOrderResponse(ctx, response); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record decision")
	}

	allocated, err := inv.AllocateItems(ctx, itemIDs)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate items")
	}
	if allocated != int64(order.Quantity) {
		// A concurrent allocation took at least one of the named items.
		return pkgerrors.New(pkgerrors.CodeConflict, "items are no longer available")
	}

	details := make([]models.OrderDetail, len(itemIDs))
	for i, itemID := range itemIDs {
		details[i] = models.OrderDetail{
			ID:      uuid.New(),
			OrderID: order.ID,
			ItemID:  itemID,
			Status:  enums.OrderDetailStatusPending,
		}
	}
	if err := repo.CreateOrderDetails(ctx, details); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order details")
	}

	logs := make([]models.ItemLog, len(details))
	for i, detail := range details {
		logs[i] = models.ItemLog{
			ID:            uuid.New(),
			OrderDetailID: detail.ID,
			AdminID:       adminID,
			ItemID:        detail.ItemID,
			Condition:     enums.ItemConditionPendingHandout,
		}
	}
	if err := repo.CreateItemLogs(ctx, logs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item logs")
	}

	if err := s.transitionOrder(ctx, repo, order, enums.OrderStatusApproved); err != nil {
		return err
	}

	return s.emitDecision(ctx, tx, order, adminID, enums.DecisionReplyApprove, itemIDs)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	start := time.Now()
	err := s.cancel(ctx, input)
	s.observe("cancel", start, err)
	if err == nil {
		s.metrics.IncCancellation("canceled")
	}
	return err
}

func (s *service) cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AdminID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		inv := s.inventory.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransition(enums.OrderStatusCanceled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be canceled in current state")
		}

		details, err := repo.FindOrderDetails(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order details")
		}
		for _, detail := range details {
			if detail.Status == enums.OrderDetailStatusTaken {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order has handed-out items")
			}
		}

		if err := s.transitionOrder(ctx, repo, order, enums.OrderStatusCanceled); err != nil {
			return err
		}

		record := &models.CanceledOrder{
			ID:          uuid.New(),
			OrderID:     order.ID,
			UserID:      order.UserID,
			Description: cancelDescription(input.Reason),
			CancelTime:  time.Now().UTC(),
		}
		if err := repo.CreateCanceledOrder(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cancellation")
		}

		released := make([]uuid.UUID, 0, len(details))
		if len(details) > 0 {
			itemIDs := make([]uuid.UUID, len(details))
			for i, detail := range details {
				itemIDs[i] = detail.ItemID
			}

			affected, err := inv.ReleaseItems(ctx, itemIDs)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release items")
			}
			if affected != int64(len(itemIDs)) {
				return pkgerrors.New(pkgerrors.CodeConflict, "item conditions changed during cancellation")
			}
			released = itemIDs

			if err := repo.UpdateOrderDetailsStatus(ctx, order.ID, enums.OrderDetailStatusCanceled); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order details")
			}

			reason := record.Description
			logs := make([]models.ItemLog, len(details))
			for i, detail := range details {
				logs[i] = models.ItemLog{
					ID:            uuid.New(),
					OrderDetailID: detail.ID,
					AdminID:       input.AdminID,
					ItemID:        detail.ItemID,
					Condition:     enums.ItemConditionInStock,
					Description:   &reason,
				}
			}
			if err := repo.CreateItemLogs(ctx, logs); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item logs")
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{SubjectID: input.AdminID, Role: string(enums.ActorRoleAdmin)},
			Data: payloads.OrderCanceledEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				AdminID:       input.AdminID,
				ReleasedItems: released,
				CanceledAt:    record.CancelTime,
				Reason:        input.Reason,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

// transitionOrder flips the order status guarded by its current value so a
// racing decision cannot double-apply.
func (s *service) transitionOrder(ctx context.Context, repo Repository, order *models.Order, target enums.OrderStatus) error {
	if !order.Status.CanTransition(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move to requested state")
	}
	affected, err := repo.UpdateOrderStatus(ctx, order.ID, order.Status, target)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if affected != 1 {
		return pkgerrors.New(pkgerrors.CodeConflict, "order changed during operation")
	}
	order.Status = target
	return nil
}

func (s *service) emitDecision(ctx context.Context, tx *gorm.DB, order *models.Order, adminID uuid.UUID, reply enums.DecisionReply, itemIDs []uuid.UUID) error {
	data := payloads.OrderDecisionEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		EquipmentID: order.EquipmentID,
		AdminID:     adminID,
		Reply:       reply,
		Status:      order.Status,
	}
	if reply == enums.DecisionReplyApprove {
		data.ItemIDs = itemIDs
		data.Condition = enums.ItemConditionPendingHandout
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderDecided,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         &outbox.ActorRef{SubjectID: adminID, Role: string(enums.ActorRoleAdmin)},
		Data:          data,
	})
}

func (s *service) observe(operation string, start time.Time, err error) {
	s.metrics.ObserveDuration(operation, time.Since(start))
	if err == nil {
		return
	}
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncRejection(operation, code)
}

func cancelDescription(reason string) string {
	if reason == "" {
		return "canceled by admin"
	}
	return reason
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
