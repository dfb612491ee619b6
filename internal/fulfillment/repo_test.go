package fulfillment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/internal/inventory"
	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	pkgerrors "github.com/ian1hx/equiploan-backend/pkg/errors"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	"github.com/ian1hx/equiploan-backend/pkg/outbox"
)

func setupFulfillmentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on the
	// same in-memory store while isolating tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  equipment_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  estimated_pickup_time DATETIME NOT NULL,
  day INTEGER NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  order_time DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  equipment_id TEXT NOT NULL,
  condition TEXT NOT NULL DEFAULT 'in_stock',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_details (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (order_id, item_id)
);`,
		`CREATE TABLE IF NOT EXISTS item_logs (
  id TEXT PRIMARY KEY,
  order_detail_id TEXT NOT NULL,
  admin_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  condition TEXT NOT NULL,
  description TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_responses (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  admin_id TEXT NOT NULL,
  reply TEXT NOT NULL,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS canceled_orders (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  description TEXT NOT NULL,
  cancel_time DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newEngine(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	outboxSvc := outbox.NewService(outbox.NewRepository(db), logg)
	svc, err := NewService(NewRepository(db), inventory.NewRepository(db), gormTxRunner{db: db}, outboxSvc, nil)
	require.NoError(t, err)
	return svc
}

func seedOrder(t *testing.T, db *gorm.DB, quantity int, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:                  uuid.New(),
		UserID:              uuid.New(),
		EquipmentID:         uuid.New(),
		Quantity:            quantity,
		EstimatedPickupTime: time.Now().Add(24 * time.Hour),
		Day:                 7,
		Status:              status,
		OrderTime:           time.Now().UTC(),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedItems(t *testing.T, db *gorm.DB, equipmentID uuid.UUID, n int, condition enums.ItemCondition) []models.Item {
	t.Helper()
	items := make([]models.Item, n)
	for i := range items {
		items[i] = models.Item{ID: uuid.New(), EquipmentID: equipmentID, Condition: condition}
	}
	require.NoError(t, db.Create(&items).Error)
	return items
}

func TestDecideApproveEndToEnd(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc := newEngine(t, db)

	order := seedOrder(t, db, 2, enums.OrderStatusPending)
	items := seedItems(t, db, order.EquipmentID, 3, enums.ItemConditionInStock)
	adminID := uuid.New()

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: adminID,
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: []uuid.UUID{items[0].ID, items[1].ID},
	})
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusApproved, got.Status)

	var pendingHandout int64
	require.NoError(t, db.Model(&models.Item{}).
		Where("equipment_id = ? AND condition = ?", order.EquipmentID, enums.ItemConditionPendingHandout).
		Count(&pendingHandout).Error)
	assert.Equal(t, int64(2), pendingHandout)

	var details []models.OrderDetail
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&details).Error)
	require.Len(t, details, 2)
	for _, detail := range details {
		assert.Equal(t, enums.OrderDetailStatusPending, detail.Status)
	}

	var logs []models.ItemLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 2)
	for _, log := range logs {
		assert.Equal(t, enums.ItemConditionPendingHandout, log.Condition)
		assert.Equal(t, adminID, log.AdminID)
	}

	var responses []models.OrderResponse
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&responses).Error)
	require.Len(t, responses, 1)
	assert.Equal(t, enums.DecisionReplyApprove, responses[0].Reply)

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderDecided, events[0].EventType)
	assert.Equal(t, order.ID, events[0].AggregateID)
}

func TestDecideApproveRollsBackWhenItemTaken(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc := newEngine(t, db)

	order := seedOrder(t, db, 2, enums.OrderStatusPending)
	items := seedItems(t, db, order.EquipmentID, 2, enums.ItemConditionInStock)
	// keep headline stock sufficient, then flip one of the named items as
	// a concurrent decision would
	seedItems(t, db, order.EquipmentID, 1, enums.ItemConditionInStock)
	require.NoError(t, db.Model(&models.Item{}).
		Where("id = ?", items[1].ID).
		Update("condition", enums.ItemConditionPendingHandout).Error)

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: []uuid.UUID{items[0].ID, items[1].ID},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	// the whole decision must roll back
	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusPending, got.Status)

	var first models.Item
	require.NoError(t, db.First(&first, "id = ?", items[0].ID).Error)
	assert.Equal(t, enums.ItemConditionInStock, first.Condition)

	var responseCount int64
	require.NoError(t, db.Model(&models.OrderResponse{}).Count(&responseCount).Error)
	assert.Zero(t, responseCount)

	var detailCount int64
	require.NoError(t, db.Model(&models.OrderDetail{}).Count(&detailCount).Error)
	assert.Zero(t, detailCount)
}

func TestDecideDenyEndToEnd(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc := newEngine(t, db)

	order := seedOrder(t, db, 1, enums.OrderStatusPending)

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyDeny,
	})
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusDenied, got.Status)

	var detailCount int64
	require.NoError(t, db.Model(&models.OrderDetail{}).Count(&detailCount).Error)
	assert.Zero(t, detailCount)
}

func TestSecondDecisionRejected(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc := newEngine(t, db)

	order := seedOrder(t, db, 1, enums.OrderStatusPending)
	items := seedItems(t, db, order.EquipmentID, 1, enums.ItemConditionInStock)

	require.NoError(t, svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: []uuid.UUID{items[0].ID},
	}))

	err := svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: uuid.New(),
		Reply:   enums.DecisionReplyDeny,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCancelEndToEnd(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc := newEngine(t, db)

	order := seedOrder(t, db, 2, enums.OrderStatusPending)
	items := seedItems(t, db, order.EquipmentID, 2, enums.ItemConditionInStock)
	adminID := uuid.New()

	require.NoError(t, svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: adminID,
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: []uuid.UUID{items[0].ID, items[1].ID},
	}))

	// drop the approve event so the assertions below see only the
	// cancellation event
	require.NoError(t, db.Exec("DELETE FROM outbox_events").Error)

	err := svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		AdminID: adminID,
		Reason:  "maintenance window",
	})
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, db.First(&got, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusCanceled, got.Status)

	var inStock int64
	require.NoError(t, db.Model(&models.Item{}).
		Where("equipment_id = ? AND condition = ?", order.EquipmentID, enums.ItemConditionInStock).
		Count(&inStock).Error)
	assert.Equal(t, int64(2), inStock)

	var details []models.OrderDetail
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&details).Error)
	require.Len(t, details, 2)
	for _, detail := range details {
		assert.Equal(t, enums.OrderDetailStatusCanceled, detail.Status)
	}

	var record models.CanceledOrder
	require.NoError(t, db.First(&record, "order_id = ?", order.ID).Error)
	assert.Equal(t, "maintenance window", record.Description)
	assert.Equal(t, order.UserID, record.UserID)

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderCanceled, events[0].EventType)
}

func TestCancelRejectedAfterHandout(t *testing.T) {
	db := setupFulfillmentTestDB(t)
	svc := newEngine(t, db)

	order := seedOrder(t, db, 1, enums.OrderStatusPending)
	items := seedItems(t, db, order.EquipmentID, 1, enums.ItemConditionInStock)
	adminID := uuid.New()

	require.NoError(t, svc.Decide(context.Background(), DecideInput{
		OrderID: order.ID,
		AdminID: adminID,
		Reply:   enums.DecisionReplyApprove,
		ItemIDs: []uuid.UUID{items[0].ID},
	}))

	require.NoError(t, db.Model(&models.OrderDetail{}).
		Where("order_id = ?", order.ID).
		Update("status", enums.OrderDetailStatusTaken).Error)

	err := svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, AdminID: adminID})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}
