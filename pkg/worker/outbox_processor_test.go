package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/pkg/logger"
	"github.com/medifast/claims-api/pkg/messaging"
	"github.com/medifast/claims-api/pkg/metrics"
)

var testMetrics = metrics.NewMetrics("claims_test", "worker")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

type statusUpdate struct {
	id           uuid.UUID
	status       model.OutboxStatus
	errorMessage *string
	retryAt      *time.Time
}

type fakeOutboxRepo struct {
	mu      sync.Mutex
	updates []statusUpdate
}

func (f *fakeOutboxRepo) Create(_ context.Context, _ *model.OutboxEvent) error {
	return nil
}

func (f *fakeOutboxRepo) BeginTx(_ context.Context) (*sqlx.Tx, error) {
	return nil, errors.New("not supported")
}

func (f *fakeOutboxRepo) GetPendingEventsWithLock(_ context.Context, _ *sqlx.Tx, _ int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepo) UpdateStatusTx(_ context.Context, _ *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{id, status, errorMessage, retryAt})
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeOutboxRepo) last(t *testing.T) statusUpdate {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.updates)
	return f.updates[len(f.updates)-1]
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUserRepo) Create(_ context.Context, _ *model.User) error { return nil }

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, model.ErrUserNotFound
}

func (f *fakeUserRepo) Update(_ context.Context, _ *model.User) error { return nil }

func (f *fakeUserRepo) List(_ context.Context, _ *model.UserFilter) ([]*model.User, int64, error) {
	return nil, 0, nil
}

func (f *fakeUserRepo) CountByRole(_ context.Context) (map[model.Role]int64, error) {
	return nil, nil
}

func (f *fakeUserRepo) CountActive(_ context.Context) (int64, error) { return 0, nil }

func (f *fakeUserRepo) CountRegisteredSince(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type published struct {
	channel string
	message messaging.Message
}

type fakeBroker struct {
	mu        sync.Mutex
	published []published
	failErr   error
}

func (f *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.published = append(f.published, published{channel, message.(messaging.Message)})
	return nil
}

func (f *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (f *fakeBroker) Ping(_ context.Context) error { return nil }
func (f *fakeBroker) Close() error                 { return nil }

type sentEmail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentEmail
	failErr error
}

func (f *fakeSender) SendNotification(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, sentEmail{to, subject, body})
	return nil
}

type processorFixture struct {
	processor *OutboxProcessor
	repo      *fakeOutboxRepo
	users     *fakeUserRepo
	broker    *fakeBroker
	sender    *fakeSender
}

func newProcessorFixture() *processorFixture {
	f := &processorFixture{
		repo:   &fakeOutboxRepo{},
		users:  &fakeUserRepo{users: make(map[uuid.UUID]*model.User)},
		broker: &fakeBroker{},
		sender: &fakeSender{},
	}
	f.processor = NewOutboxProcessor(f.repo, f.users, f.broker, f.sender, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Second,
	}, testLogger(), testMetrics)
	return f
}

func statusChangedEvent(t *testing.T, retryCount int) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.ClaimStatusChangedPayload{
		ClaimID:     uuid.New(),
		ClaimNumber: "CLM-20250310-AB12CD34",
		FromStatus:  model.ClaimStatusSubmitted,
		ToStatus:    model.ClaimStatusInReview,
		ActorRole:   model.RoleHospital,
	})
	require.NoError(t, err)
	return &model.OutboxEvent{
		ID:         uuid.New(),
		EventType:  model.EventTypeClaimStatusChanged,
		Payload:    payload,
		Status:     model.OutboxStatusPending,
		RetryCount: retryCount,
	}
}

func notificationEvent(t *testing.T, recipientID uuid.UUID) *model.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(model.NotificationCreatedPayload{
		NotificationID: uuid.New(),
		RecipientID:    recipientID,
		Title:          "Claim Status Update - CLM-20250310-AB12CD34",
		Message:        "Your claim CLM-20250310-AB12CD34 is now under review.",
		Type:           model.NotificationTypeStatusUpdate,
	})
	require.NoError(t, err)
	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventTypeNotificationCreated,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
	}
}

func TestSettlePublishesClaimEventAndMarksProcessed(t *testing.T) {
	f := newProcessorFixture()
	event := statusChangedEvent(t, 0)

	f.processor.settle(context.Background(), nil, event)

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, messaging.ChannelClaimEvents, f.broker.published[0].channel)
	assert.Equal(t, model.EventTypeClaimStatusChanged, f.broker.published[0].message.Type)

	update := f.repo.last(t)
	assert.Equal(t, event.ID, update.id)
	assert.Equal(t, model.OutboxStatusProcessed, update.status)
	assert.Nil(t, update.errorMessage)
	assert.Nil(t, update.retryAt)
}

func TestSettleRoutesNotificationAndSendsEmail(t *testing.T) {
	f := newProcessorFixture()
	recipientID := uuid.New()
	f.users.users[recipientID] = &model.User{
		Base:  model.Base{ID: recipientID},
		Email: "patient@example.com",
		Role:  model.RolePatient,
	}
	event := notificationEvent(t, recipientID)

	f.processor.settle(context.Background(), nil, event)

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, messaging.ChannelNotifications, f.broker.published[0].channel)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "patient@example.com", f.sender.sent[0].to)
	assert.Equal(t, "Claim Status Update - CLM-20250310-AB12CD34", f.sender.sent[0].subject)
	assert.Contains(t, f.sender.sent[0].body, "under review")

	assert.Equal(t, model.OutboxStatusProcessed, f.repo.last(t).status)
}

func TestSettleSchedulesRetryWithBackoff(t *testing.T) {
	f := newProcessorFixture()
	f.broker.failErr = errors.New("connection refused")

	before := time.Now()
	f.processor.settle(context.Background(), nil, statusChangedEvent(t, 0))

	update := f.repo.last(t)
	assert.Equal(t, model.OutboxStatusRetry, update.status)
	require.NotNil(t, update.errorMessage)
	assert.Contains(t, *update.errorMessage, "connection refused")
	require.NotNil(t, update.retryAt)
	assert.WithinDuration(t, before.Add(5*time.Second), *update.retryAt, time.Second)

	// The third recorded retry waits four times the base delay.
	f.processor.settle(context.Background(), nil, statusChangedEvent(t, 2))
	update = f.repo.last(t)
	assert.Equal(t, model.OutboxStatusRetry, update.status)
	require.NotNil(t, update.retryAt)
	assert.WithinDuration(t, before.Add(20*time.Second), *update.retryAt, time.Second)
}

func TestSettleFailsPermanentlyAfterRetryBudget(t *testing.T) {
	f := newProcessorFixture()
	f.broker.failErr = errors.New("connection refused")

	f.processor.settle(context.Background(), nil, statusChangedEvent(t, 3))

	update := f.repo.last(t)
	assert.Equal(t, model.OutboxStatusFailed, update.status)
	require.NotNil(t, update.errorMessage)
	assert.Nil(t, update.retryAt)
}

func TestSettleEmailFailureDoesNotFailEvent(t *testing.T) {
	f := newProcessorFixture()
	recipientID := uuid.New()
	f.users.users[recipientID] = &model.User{
		Base:  model.Base{ID: recipientID},
		Email: "patient@example.com",
	}
	f.sender.failErr = errors.New("smtp unreachable")

	f.processor.settle(context.Background(), nil, notificationEvent(t, recipientID))

	assert.Len(t, f.broker.published, 1)
	assert.Equal(t, model.OutboxStatusProcessed, f.repo.last(t).status)
}

func TestSettleUnknownRecipientSkipsEmail(t *testing.T) {
	f := newProcessorFixture()

	f.processor.settle(context.Background(), nil, notificationEvent(t, uuid.New()))

	assert.Len(t, f.broker.published, 1)
	assert.Empty(t, f.sender.sent)
	assert.Equal(t, model.OutboxStatusProcessed, f.repo.last(t).status)
}

func TestSettleMalformedNotificationPayloadStillPublishes(t *testing.T) {
	f := newProcessorFixture()
	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: model.EventTypeNotificationCreated,
		Payload:   json.RawMessage(`{broken`),
		Status:    model.OutboxStatusPending,
	}

	f.processor.settle(context.Background(), nil, event)

	assert.Len(t, f.broker.published, 1)
	assert.Empty(t, f.sender.sent)
	assert.Equal(t, model.OutboxStatusProcessed, f.repo.last(t).status)
}

func TestNewOutboxProcessorRejectsZeroConfig(t *testing.T) {
	f := newProcessorFixture()

	assert.Panics(t, func() {
		NewOutboxProcessor(f.repo, f.users, f.broker, f.sender, OutboxProcessorConfig{
			PollInterval:  time.Second,
			RetryAttempts: 3,
			RetryDelay:    time.Second,
		}, testLogger(), testMetrics)
	})
}
