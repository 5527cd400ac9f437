package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/medifast/claims-api/internal/email"
	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
	"github.com/medifast/claims-api/pkg/logger"
	"github.com/medifast/claims-api/pkg/messaging"
	"github.com/medifast/claims-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// OutboxProcessor drains the transactional outbox and publishes events
// to the message broker. Claim events go to the events channel;
// notification events additionally fan out as emails. Multiple workers
// may run concurrently; SKIP LOCKED keeps their batches disjoint.
type OutboxProcessor struct {
	repo    repository.OutboxRepository
	users   repository.UserRepository
	broker  messaging.Broker
	emails  email.Sender
	config  OutboxProcessorConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	users repository.UserRepository,
	broker messaging.Broker,
	emails email.Sender,
	config OutboxProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}

	return &OutboxProcessor{
		repo:    repo,
		users:   users,
		broker:  broker,
		emails:  emails,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

// Start polls until the context is cancelled.
func (p *OutboxProcessor) Start(ctx context.Context) {
	p.logger.Info("starting outbox processor",
		"poll_interval", p.config.PollInterval.String(),
		"batch_size", p.config.BatchSize)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return
		case <-ticker.C:
			if err := p.DrainOnce(ctx); err != nil {
				p.logger.Error(err, "outbox drain failed")
			}
		}
	}
}

// DrainOnce claims one batch and settles every event in it. The whole
// batch is handled inside a single transaction so the SKIP LOCKED row
// locks hold until the status updates commit; a crash mid-batch rolls
// everything back to pending and the events are retried.
func (p *OutboxProcessor) DrainOnce(ctx context.Context) error {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	tx, err := p.repo.BeginTx(ctx)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("outbox_begin_tx", "error").Inc()
		return fmt.Errorf("failed to begin outbox transaction: %w", err)
	}
	defer tx.Rollback()

	events, err := p.repo.GetPendingEventsWithLock(ctx, tx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("outbox_fetch", "error").Inc()
		return fmt.Errorf("failed to fetch pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("outbox_fetch", "success").Inc()

	for _, event := range events {
		p.settle(ctx, tx, event)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outbox batch: %w", err)
	}
	return nil
}

// settle publishes one event and records the outcome on its row.
func (p *OutboxProcessor) settle(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) {
	publishErr := p.publish(ctx, event)
	if publishErr == nil {
		p.metrics.OutboxEventsProcessed.Inc()
		if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusProcessed, nil, nil); err != nil {
			p.logger.Error(err, "failed to mark event processed", "event_id", event.ID.String())
		}
		return
	}

	errMsg := publishErr.Error()
	if event.RetryCount >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		p.logger.Error(publishErr, "outbox event exhausted retries",
			"event_id", event.ID.String(),
			"event_type", event.EventType,
			"retry_count", event.RetryCount)
		if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusFailed, &errMsg, nil); err != nil {
			p.logger.Error(err, "failed to mark event failed", "event_id", event.ID.String())
		}
		return
	}

	// Exponential backoff: delay doubles with each recorded retry.
	retryAt := time.Now().Add(p.config.RetryDelay * time.Duration(1<<event.RetryCount))
	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	p.logger.Warn("outbox event scheduled for retry",
		"event_id", event.ID.String(),
		"event_type", event.EventType,
		"retry_count", event.RetryCount+1,
		"retry_at", retryAt.Format(time.RFC3339))
	if err := p.repo.UpdateStatusTx(ctx, tx, event.ID, model.OutboxStatusRetry, &errMsg, &retryAt); err != nil {
		p.logger.Error(err, "failed to schedule event retry", "event_id", event.ID.String())
	}
}

func (p *OutboxProcessor) publish(ctx context.Context, event *model.OutboxEvent) error {
	channel := messaging.ChannelClaimEvents
	if event.EventType == model.EventTypeNotificationCreated {
		channel = messaging.ChannelNotifications
	}

	msg := messaging.Message{
		Type:    event.EventType,
		Payload: json.RawMessage(event.Payload),
	}
	if err := p.broker.Publish(ctx, channel, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}

	if event.EventType == model.EventTypeNotificationCreated {
		p.emailCopy(ctx, event)
	}
	return nil
}

// emailCopy sends the email rendition of a notification. Email delivery
// is best effort: the event already reached the broker, so a failed
// email never blocks or retries the event itself.
func (p *OutboxProcessor) emailCopy(ctx context.Context, event *model.OutboxEvent) {
	var payload model.NotificationCreatedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		p.logger.Error(err, "malformed notification payload", "event_id", event.ID.String())
		return
	}

	user, err := p.users.Get(ctx, payload.RecipientID)
	if err != nil {
		p.logger.Error(err, "failed to load notification recipient",
			"recipient_id", payload.RecipientID.String())
		return
	}

	if err := p.emails.SendNotification(ctx, user.Email, payload.Title, payload.Message); err != nil {
		p.logger.Error(err, "failed to email notification",
			"recipient_id", payload.RecipientID.String(),
			"notification_id", payload.NotificationID.String())
	}
}
