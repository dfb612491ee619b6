package fulfillment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/internal/inventory"
	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/outbox"
	"github.com/ian1hx/equiploan-backend/pkg/outbox/payloads"
)

type stubFulfillmentRepo struct {
	order   *models.Order
	details []models.OrderDetail

	createdResponse *models.OrderResponse
	createdDetails  []models.OrderDetail
	createdLogs     []models.ItemLog
	canceledRecord  *models.CanceledOrder
	detailsStatus   enums.OrderDetailStatus

	updateOrderStatus func(orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
}

func (s *stubFulfillmentRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubFulfillmentRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubFulfillmentRepo) FindOrderDetails(ctx context.Context, orderID uuid.UUID) ([]models.OrderDetail, error) {
	return s.details, nil
}

func (s *stubFulfillmentRepo) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	if s.updateOrderStatus != nil {
		return s.updateOrderStatus(orderID, from, to)
	}
	if s.order == nil || s.order.ID != orderID || s.order.Status != from {
		return 0, nil
	}
	s.order.Status = to
	return 1, nil
}

func (s *stubFulfillmentRepo) UpdateOrderDetailsStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderDetailStatus) error {
	s.detailsStatus = status
	return nil
}

func (s *stubFulfillmentRepo) CreateOrderResponse(ctx context.Context, response *models.OrderResponse) error {
	s.createdResponse = response
	return nil
}

func (s *stubFulfillmentRepo) CreateOrderDetails(ctx context.Context, details []models.OrderDetail) error {
	s.createdDetails = details
	return nil
}

func (s *stubFulfillmentRepo) CreateItemLogs(ctx context.Context, logs []models.ItemLog) error {
	s.createdLogs = append(s.createdLogs, logs...)
	return nil
}

func (s *stubFulfillmentRepo) CreateCanceledOrder(ctx context.Context, record *models.CanceledOrder) error {
	s.canceledRecord = record
	return nil
}

type stubInventoryRepo struct {
	items   []models.Item
	inStock int64

	allocated []uuid.UUID
	released  []uuid.UUID

	allocateItems func(ids []uuid.UUID) (int64, error)
	releaseItems  func(ids []uuid.UUID) (int64, error)
}

func (s *stubInventoryRepo) WithTx(tx *gorm.DB) inventory.Repository {
	return s
}

func (s *stubInventoryRepo) FindItemsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Item, error) {
	found := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		for _, item := range s.items {
			if item.ID == id {
				found = append(found, item)
			}
		}
	}
	return found, nil
}

func (s *stubInventoryRepo) CountInStock(ctx context.Context, equipmentID uuid.UUID) (int64, error) {
	return s.inStock, nil
}

func (s *stubInventoryRepo) AllocateItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if s.allocateItems != nil {
		return s.allocateItems(ids)
	}
	s.allocated = ids
	return int64(len(ids)), nil
}

func (s *stubInventoryRepo) ReleaseItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if s.releaseItems != nil {
		return s.releaseItems(ids)
	}
	s.released = ids
	return int64(len(ids)), nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func pendingOrder(quantity int) *models.Order {
	return &models.Order{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		EquipmentID: uuid.New(),
		Quantity:    quantity,
		Status:      enums.OrderStatusPending,
	}
}

func stockItems(equipmentID uuid.UUID, n int) []models.Item {
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{
			ID:          uuid.New(),
			EquipmentID: equipmentID,
			Condition:   enums.ItemConditionInStock,
		}
	}
	return items
}

func itemIDs(items []models.Item) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func newTestService(t *testing.T, repo *stubFulfillmentRepo, inv *stubInventoryRepo, pub *stubOutboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, inv, stubTxRunner{}, pub, nil)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected %s got %v", code, err)
	}
}

func TestApproveAllocatesItems(t *testing.T) {
	order := pendingOrder(2)
	items := stockItems(order.EquipmentID, 2)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{items: items, inStock: 3}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, inv, pub)

	adminID := uuid.New()
	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: adminID,
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: itemIDs(items),
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if repo.order.Status != enums.OrderStatusApproved {
		t.Fatalf("expected approved got %s", repo.order.Status)
	}
	if repo.createdResponse == nil || repo.createdResponse.Reply != enums.DecisionReplyApprove {
		t.Fatalf("expected approve response, got %+v", repo.createdResponse)
	}
	if len(inv.allocated) != 2 {
		t.Fatalf("expected 2 allocated items got %d", len(inv.allocated))
	}
	if len(repo.createdDetails) != 2 {
		t.Fatalf("expected 2 order details got %d", len(repo.createdDetails))
	}
	for _, detail := range repo.createdDetails {
		if detail.OrderID != order.ID || detail.Status != enums.OrderDetailStatusPending {
			t.Fatalf("unexpected detail %+v", detail)
		}
	}
	if len(repo.createdLogs) != 2 {
		t.Fatalf("expected 2 item logs got %d", len(repo.createdLogs))
	}
	for _, log := range repo.createdLogs {
		if log.Condition != enums.ItemConditionPendingHandout || log.AdminID != adminID {
			t.Fatalf("unexpected item log %+v", log)
		}
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 outbox event got %d", len(pub.events))
	}
	event := pub.events[0]
	if event.EventType != enums.EventOrderDecided {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	data, ok := event.Data.(payloads.OrderDecisionEvent)
	if !ok {
		t.Fatalf("unexpected event data %T", event.Data)
	}
	if data.Reply != enums.DecisionReplyApprove || len(data.ItemIDs) != 2 {
		t.Fatalf("unexpected decision payload %+v", data)
	}
}

func TestApproveCollapsesDuplicateItemIDs(t *testing.T) {
	order := pendingOrder(2)
	items := stockItems(order.EquipmentID, 2)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{items: items, inStock: 2}
	svc := newTestService(t, repo, inv, &stubOutboxPublisher{})

	ids := itemIDs(items)
	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: []uuid.UUID{ids[0], ids[0], ids[1], uuid.Nil},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(inv.allocated) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 got %d", len(inv.allocated))
	}
}

func TestApproveRejectsWrongItemCount(t *testing.T) {
	order := pendingOrder(3)
	items := stockItems(order.EquipmentID, 2)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{items: items, inStock: 5}
	svc := newTestService(t, repo, inv, &stubOutboxPublisher{})

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: itemIDs(items),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
	if repo.createdResponse != nil {
		t.Fatal("decision must not be recorded on validation failure")
	}
}

func TestApproveRejectsUnknownItems(t *testing.T) {
	order := pendingOrder(2)
	items := stockItems(order.EquipmentID, 1)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{items: items, inStock: 5}
	svc := newTestService(t, repo, inv, &stubOutboxPublisher{})

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: []uuid.UUID{items[0].ID, uuid.New()},
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestApproveRejectsEquipmentMismatch(t *testing.T) {
	order := pendingOrder(1)
	other := stockItems(uuid.New(), 1)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{items: other, inStock: 5}
	svc := newTestService(t, repo, inv, &stubOutboxPublisher{})

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: itemIDs(other),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestApproveRejectsInsufficientStock(t *testing.T) {
	order := pendingOrder(2)
	items := stockItems(order.EquipmentID, 2)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{items: items, inStock: 1}
	svc := newTestService(t, repo, inv, &stubOutboxPublisher{})

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: itemIDs(items),
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestApproveLosesAllocationRace(t *testing.T) {
	order := pendingOrder(2)
	items := stockItems(order.EquipmentID, 2)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{
		items:   items,
		inStock: 2,
		allocateItems: func(ids []uuid.UUID) (int64, error) {
			// one item was flipped by a concurrent decision
			return int64(len(ids)) - 1, nil
		},
	}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, inv, pub)

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: itemIDs(items),
	})
	expectCode(t, err, pkgerrors.CodeConflict)
	if len(pub.events) != 0 {
		t.Fatal("no event may be emitted when allocation loses the race")
	}
}

func TestDenyLeavesInventoryUntouched(t *testing.T) {
	order := pendingOrder(2)
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, inv, pub)

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyDeny,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.order.Status != enums.OrderStatusDenied {
		t.Fatalf("expected denied got %s", repo.order.Status)
	}
	if len(inv.allocated) != 0 {
		t.Fatal("deny must not allocate items")
	}
	if len(repo.createdDetails) != 0 {
		t.Fatal("deny must not create order details")
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.EventOrderDecided {
		t.Fatalf("expected one order_decided event got %+v", pub.events)
	}
}

func TestDecideRejectsAlreadyDecidedOrder(t *testing.T) {
	order := pendingOrder(1)
	order.Status = enums.OrderStatusApproved
	repo := &stubFulfillmentRepo{order: order}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubInventoryRepo{}, pub)

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyDeny,
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
	if len(pub.events) != 0 {
		t.Fatal("unexpected outbox event")
	}
}

func TestDecideRejectsUnknownOrder(t *testing.T) {
	repo := &stubFulfillmentRepo{}
	svc := newTestService(t, repo, &stubInventoryRepo{}, &stubOutboxPublisher{})

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: uuid.New(),
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyDeny,
	})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestDecideLosesStatusRace(t *testing.T) {
	order := pendingOrder(1)
	repo := &stubFulfillmentRepo{
		order: order,
		updateOrderStatus: func(orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
			return 0, nil
		},
	}
	svc := newTestService(t, repo, &stubInventoryRepo{}, &stubOutboxPublisher{})

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyDeny,
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestCancelReleasesAllocatedItems(t *testing.T) {
	order := pendingOrder(2)
	order.Status = enums.OrderStatusApproved
	detailA := models.OrderDetail{ID: uuid.New(), OrderID: order.ID, ItemID: uuid.New(), Status: enums.OrderDetailStatusPending}
	detailB := models.OrderDetail{ID: uuid.New(), OrderID: order.ID, ItemID: uuid.New(), Status: enums.OrderDetailStatusPending}
	repo := &stubFulfillmentRepo{order: order, details: []models.OrderDetail{detailA, detailB}}
	inv := &stubInventoryRepo{}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, inv, pub)

	adminID := uuid.New()
	err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		AdminID: adminID,
		Reason:  "equipment recalled",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}

	if repo.order.Status != enums.OrderStatusCanceled {
		t.Fatalf("expected canceled got %s", repo.order.Status)
	}
	if repo.canceledRecord == nil || repo.canceledRecord.Description != "equipment recalled" {
		t.Fatalf("unexpected cancellation record %+v", repo.canceledRecord)
	}
	if repo.canceledRecord.UserID != order.UserID {
		t.Fatal("cancellation record must carry the order's user")
	}
	if len(inv.released) != 2 {
		t.Fatalf("expected 2 released items got %d", len(inv.released))
	}
	if repo.detailsStatus != enums.OrderDetailStatusCanceled {
		t.Fatalf("expected details canceled got %s", repo.detailsStatus)
	}
	if len(repo.createdLogs) != 2 {
		t.Fatalf("expected 2 item logs got %d", len(repo.createdLogs))
	}
	for _, log := range repo.createdLogs {
		if log.Condition != enums.ItemConditionInStock {
			t.Fatalf("release log must record in_stock, got %s", log.Condition)
		}
		if log.Description == nil || *log.Description != "equipment recalled" {
			t.Fatalf("release log must carry the reason, got %+v", log.Description)
		}
	}
	if len(pub.events) != 1 || pub.events[0].EventType != enums.EventOrderCanceled {
		t.Fatalf("expected one order_canceled event got %+v", pub.events)
	}
	data, ok := pub.events[0].Data.(payloads.OrderCanceledEvent)
	if !ok {
		t.Fatalf("unexpected event data %T", pub.events[0].Data)
	}
	if len(data.ReleasedItems) != 2 || data.AdminID != adminID {
		t.Fatalf("unexpected cancel payload %+v", data)
	}
}

func TestCancelWithoutDetailsSkipsInventory(t *testing.T) {
	order := pendingOrder(1)
	order.Status = enums.OrderStatusApproved
	repo := &stubFulfillmentRepo{order: order}
	inv := &stubInventoryRepo{}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, inv, pub)

	err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, AdminID: uuid.New()})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(inv.released) != 0 {
		t.Fatal("nothing to release")
	}
	if repo.canceledRecord == nil || repo.canceledRecord.Description != "canceled by admin" {
		t.Fatalf("expected default description got %+v", repo.canceledRecord)
	}
}

func TestCancelRejectsHandedOutItems(t *testing.T) {
	order := pendingOrder(1)
	order.Status = enums.OrderStatusApproved
	repo := &stubFulfillmentRepo{
		order: order,
		details: []models.OrderDetail{
			{ID: uuid.New(), OrderID: order.ID, ItemID: uuid.New(), Status: enums.OrderDetailStatusTaken},
		},
	}
	inv := &stubInventoryRepo{}
	svc := newTestService(t, repo, inv, &stubOutboxPublisher{})

	err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, AdminID: uuid.New()})
	expectCode(t, err, pkgerrors.CodeStateConflict)
	if len(inv.released) != 0 {
		t.Fatal("no items may be released")
	}
}

func TestCancelRejectsTerminalOrder(t *testing.T) {
	order := pendingOrder(1)
	order.Status = enums.OrderStatusDenied
	repo := &stubFulfillmentRepo{order: order}
	svc := newTestService(t, repo, &stubInventoryRepo{}, &stubOutboxPublisher{})

	err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, AdminID: uuid.New()})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCancelLosesReleaseRace(t *testing.T) {
	order := pendingOrder(1)
	order.Status = enums.OrderStatusApproved
	repo := &stubFulfillmentRepo{
		order: order,
		details: []models.OrderDetail{
			{ID: uuid.New(), OrderID: order.ID, ItemID: uuid.New(), Status: enums.OrderDetailStatusPending},
		},
	}
	inv := &stubInventoryRepo{
		releaseItems: func(ids []uuid.UUID) (int64, error) { return 0, nil },
	}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, inv, pub)

	err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, AdminID: uuid.New()})
	expectCode(t, err, pkgerrors.CodeConflict)
	if len(pub.events) != 0 {
		t.Fatal("no event may be emitted when the release loses")
	}
}

func TestDecideRequiresAdminIdentity(t *testing.T) {
	svc := newTestService(t, &stubFulfillmentRepo{}, &stubInventoryRepo{}, &stubOutboxPublisher{})
	err := svc.Decide(context.Background(), DecideInput{
		OrderID: uuid.New(),
		Reply:   enums.DecisionReplyDeny,
	})
	expectCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestDecideRejectsInvalidReply(t *testing.T) {
	svc := newTestService(t, &stubFulfillmentRepo{}, &stubInventoryRepo{}, &stubOutboxPublisher{})
	err := svc.Decide(context.Background(), DecideInput{
		OrderID: uuid.New(),
		AdminID: uuid.New(),
		Reply:   enums.DecisionReply("maybe"),
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}
