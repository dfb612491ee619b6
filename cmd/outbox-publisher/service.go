package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ian1hx/equiploan-backend/pkg/config"
	"github.com/ian1hx/equiploan-backend/pkg/db/models"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	"github.com/ian1hx/equiploan-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackPollMs      = 500
	fallbackMaxAttempts = 10
	publishTimeout      = 15 * time.Second
	backoffCeiling      = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type messageBus interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterStore interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type topicPublisherFunc func(topic string) topicPublisher

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            txRunner
	PubSub        messageBus
	Repository    eventStore
	Registry      eventResolver
	NewPublisher  topicPublisherFunc
	DLQRepository deadLetterStore
}

// Service drains unpublished outbox rows to Pub/Sub. Each batch runs
// inside a transaction so a crash mid-batch re-delivers rather than
// drops events.
type Service struct {
	logg         *logger.Logger
	db           txRunner
	bus          messageBus
	events       eventStore
	deadLetters  deadLetterStore
	resolver     eventResolver
	newPublisher topicPublisherFunc
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	newPublisher := params.NewPublisher
	if newPublisher == nil {
		newPublisher = func(topic string) topicPublisher {
			return wrapGCPPublisher(params.PubSub.Publisher(topic))
		}
	}

	s := &Service{
		logg:         params.Logger,
		db:           params.DB,
		bus:          params.PubSub,
		events:       params.Repository,
		deadLetters:  params.DLQRepository,
		resolver:     params.Registry,
		newPublisher: newPublisher,
		batchSize:    params.Config.Outbox.BatchSize,
		maxAttempts:  params.Config.Outbox.MaxAttempts,
		pollInterval: time.Duration(params.Config.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if s.batchSize <= 0 {
		s.batchSize = fallbackBatchSize
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = fallbackMaxAttempts
	}
	if s.pollInterval <= 0 {
		s.pollInterval = fallbackPollMs * time.Millisecond
	}
	return s, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for name, ping := range map[string]func(context.Context) error{
		"database": s.db.Ping,
		"pubsub":   s.bus.Ping,
	} {
		if err := ping(ctx); err != nil {
			s.logg.Error(ctx, name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := newBackoff(s.pollInterval, backoffCeiling)

	for {
		if err := ctx.Err(); err != nil {
			s.logg.Info(ctx, "outbox publisher stopping")
			return err
		}

		drained, err := s.drainOnce(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox batch failed", err)
			if sleepErr := sleepCtx(ctx, wait.next()); sleepErr != nil {
				return sleepErr
			}
		case drained:
			wait.reset()
		default:
			wait.reset()
			if sleepErr := sleepCtx(ctx, wait.next()); sleepErr != nil {
				return sleepErr
			}
		}
	}
}

// drainOnce claims and dispatches one batch. It reports whether any
// rows were claimed so the caller can decide between looping and
// sleeping.
func (s *Service) drainOnce(ctx context.Context) (bool, error) {
	drained := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := s.events.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		drained = true
		for _, event := range batch {
			if err := s.dispatch(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return drained, err
}

// dispatch publishes a single event and records the outcome. Only
// bookkeeping failures are returned; publish failures are absorbed
// into the row's attempt state.
func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) error {
	resolved, err := s.resolver.Resolve(event)
	if err != nil {
		return s.park(ctx, tx, event, "", enums.OutboxDLQReasonNonRetryable, err)
	}

	topic := resolved.Descriptor.Topic
	pubErr := s.publish(ctx, event, resolved)
	if pubErr == nil {
		if err := s.events.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.eventCtx(ctx, event, topic), "outbox event published")
		return nil
	}

	var nonRetry registry.NonRetryableError
	if errors.As(pubErr, &nonRetry) {
		return s.park(ctx, tx, event, topic, enums.OutboxDLQReasonNonRetryable, pubErr)
	}

	if event.AttemptCount+1 >= s.maxAttempts {
		terminal := fmt.Errorf("max publish attempts reached: %w", pubErr)
		return s.park(ctx, tx, event, topic, enums.OutboxDLQReasonMaxAttempts, terminal)
	}

	warnCtx := s.logg.WithField(s.eventCtx(ctx, event, topic), "error", pubErr.Error())
	s.logg.Warn(warnCtx, "outbox publish failed")
	if err := s.events.MarkFailedTx(tx, event.ID, pubErr); err != nil {
		return fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return nil
}

// park moves an event to the dead-letter table and marks the row
// terminal so the fetch query stops picking it up.
func (s *Service) park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, topic string, reason enums.OutboxDLQErrorReason, cause error) error {
	warnCtx := s.logg.WithFields(s.eventCtx(ctx, event, topic), map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	})
	s.logg.Warn(warnCtx, "outbox event will not be retried")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.deadLetters.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.events.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.newPublisher(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	msg := &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(publishCtx)
	return err
}

func (s *Service) eventCtx(ctx context.Context, event models.OutboxEvent, topic string) context.Context {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return s.logg.WithFields(ctx, fields)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff doubles the delay after each consecutive failure, capped at
// ceiling, and smears every delay with a little jitter so restarted
// replicas do not poll in lockstep.
type backoff struct {
	base    time.Duration
	ceiling time.Duration
	current time.Duration
	rng     *rand.Rand
}

func newBackoff(base, ceiling time.Duration) *backoff {
	return &backoff{
		base:    base,
		ceiling: ceiling,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *backoff) next() time.Duration {
	if b.current <= 0 {
		b.current = b.base
	} else {
		b.current *= 2
		if b.current > b.ceiling {
			b.current = b.ceiling
		}
	}
	return b.current + time.Duration(b.rng.Int63n(int64(jitterWindow)))
}

func (b *backoff) reset() {
	b.current = 0
}

func wrapGCPPublisher(p *gcppubsub.Publisher) topicPublisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{p}
}

type gcpPublisher struct {
	inner *gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p.inner == nil {
		return nil
	}
	return gcpResult{p.inner.Publish(ctx, msg)}
}

type gcpResult struct {
	inner *gcppubsub.PublishResult
}

func (r gcpResult) Get(ctx context.Context) (string, error) {
	if r.inner == nil {
		return "", errors.New("publish result is nil")
	}
	return r.inner.Get(ctx)
}
