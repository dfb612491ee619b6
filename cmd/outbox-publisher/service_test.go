package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/pkg/config"
	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	"github.com/ian1hx/equiploan-backend/pkg/outbox"
	"github.com/ian1hx/equiploan-backend/pkg/outbox/payloads"
	"github.com/ian1hx/equiploan-backend/pkg/outbox/registry"
)

func TestDrainContinuesAfterTransientFailure(t *testing.T) {
	first := outboxRow(t, enums.EventOrderCreated)
	second := outboxRow(t, enums.EventOrderCreated)
	store := &memEventStore{rows: []models.OutboxEvent{first, second}}
	pub := &scriptedPublisher{outcomes: []error{errors.New("transient"), nil}}
	svc := buildService(t, store, pub, resolverFor(&payloads.OrderCreatedEvent{}), &memDLQ{}, nil)

	drained, err := svc.drainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if !drained {
		t.Fatal("expected drain to report claimed rows")
	}
	if len(store.failed) != 1 || store.failed[0] != first.ID {
		t.Fatalf("wrong failure bookkeeping: %v", store.failed)
	}
	if len(store.published) != 1 || store.published[0] != second.ID {
		t.Fatalf("wrong publish bookkeeping: %v", store.published)
	}
}

func TestDrainParksNonRetryableEvents(t *testing.T) {
	row := outboxRow(t, enums.EventOrderCanceled)
	store := &memEventStore{rows: []models.OutboxEvent{row}}
	resolver := &stubResolver{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlq := &memDLQ{}
	svc := buildService(t, store, &scriptedPublisher{}, resolver, dlq, nil)

	if _, err := svc.drainOnce(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(dlq.entries))
	}
	entry := dlq.entries[0]
	if entry.EventID != row.ID {
		t.Fatalf("dead letter recorded wrong event: %s", entry.EventID)
	}
	if !bytes.Equal(entry.Payload, row.Payload) {
		t.Fatal("dead letter payload does not match the source row")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected reason %s", entry.ErrorReason)
	}
	if len(store.terminal) != 1 || store.terminal[0] != row.ID {
		t.Fatalf("row was not marked terminal: %v", store.terminal)
	}
}

func TestDrainParksAfterMaxAttempts(t *testing.T) {
	row := outboxRow(t, enums.EventOrderDecided)
	row.AttemptCount = 1
	store := &memEventStore{rows: []models.OutboxEvent{row}}
	pub := &scriptedPublisher{outcomes: []error{errors.New("transient")}}
	dlq := &memDLQ{}
	svc := buildService(t, store, pub, resolverFor(&payloads.OrderDecisionEvent{}), dlq, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	if _, err := svc.drainOnce(context.Background()); err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if len(dlq.entries) != 1 {
		t.Fatalf("expected one dead letter, got %d", len(dlq.entries))
	}
	if dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected reason %s", dlq.entries[0].ErrorReason)
	}
	if len(store.failed) != 0 {
		t.Fatalf("final attempt must park, not re-queue: %v", store.failed)
	}
}

func TestDrainReportsIdleOnEmptyTable(t *testing.T) {
	store := &memEventStore{}
	svc := buildService(t, store, &scriptedPublisher{}, &stubResolver{}, &memDLQ{}, nil)

	drained, err := svc.drainOnce(context.Background())
	if err != nil {
		t.Fatalf("drain returned error: %v", err)
	}
	if drained {
		t.Fatal("empty table must report idle")
	}
}

func outboxRow(tb testing.TB, eventType enums.OutboxEventType) models.OutboxEvent {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func resolverFor(payload any) *stubResolver {
	return &stubResolver{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "equiploan-order-events",
			AggregateType: enums.AggregateOrder,
		},
		Payload: payload,
	}}
}

func buildService(t *testing.T, store eventStore, pub topicPublisher, resolver eventResolver, dlq deadLetterStore, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	svc, err := NewService(ServiceParams{
		Config:        &config.Config{Outbox: outboxCfg},
		Logger:        logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:            noopDB{},
		PubSub:        noopBus{},
		Repository:    store,
		Registry:      resolver,
		NewPublisher:  func(string) topicPublisher { return pub },
		DLQRepository: dlq,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return svc
}

type memEventStore struct {
	rows      []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (m *memEventStore) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return m.rows, nil
}

func (m *memEventStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memEventStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memEventStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	m.terminal = append(m.terminal, id)
	return nil
}

type noopDB struct{}

func (noopDB) Ping(context.Context) error { return nil }

func (noopDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type noopBus struct{}

func (noopBus) Ping(context.Context) error { return nil }

func (noopBus) Publisher(string) *gcppubsub.Publisher { return nil }

// scriptedPublisher replays one outcome per Publish call, in order.
type scriptedPublisher struct {
	outcomes []error
}

func (s *scriptedPublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	if len(s.outcomes) == 0 {
		return nil
	}
	out := s.outcomes[0]
	s.outcomes = s.outcomes[1:]
	return scriptedResult{err: out}
}

type scriptedResult struct {
	err error
}

func (s scriptedResult) Get(context.Context) (string, error) { return "", s.err }

type stubResolver struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (s *stubResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.resolved == nil {
		return nil, s.err
	}
	resolved := *s.resolved
	resolved.Envelope.EventID = event.ID.String()
	resolved.Envelope.OccurredAt = time.Now()
	return &resolved, s.err
}

type memDLQ struct {
	entries []models.OutboxDLQ
}

func (m *memDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}
