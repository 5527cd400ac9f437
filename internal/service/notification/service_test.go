package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medifast/claims-api/internal/model"
)

type fakeNotificationRepo struct {
	lastFilter   *model.NotificationFilter
	lastReadID   uuid.UUID
	lastReadAt   time.Time
	lastReadUser uuid.UUID

	listErr error
	markErr error
	unread  int64
}

func (f *fakeNotificationRepo) Create(_ context.Context, _ *model.Notification) error { return nil }

func (f *fakeNotificationRepo) Get(_ context.Context, _ uuid.UUID) (*model.Notification, error) {
	return nil, model.ErrNotificationNotFound
}

func (f *fakeNotificationRepo) List(_ context.Context, filter *model.NotificationFilter) ([]*model.Notification, int64, error) {
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return []*model.Notification{}, 0, nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.unread, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id, recipientID uuid.UUID, readAt time.Time) error {
	f.lastReadID = id
	f.lastReadUser = recipientID
	f.lastReadAt = readAt
	return f.markErr
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, recipientID uuid.UUID, readAt time.Time) (int64, error) {
	f.lastReadUser = recipientID
	f.lastReadAt = readAt
	return 3, nil
}

func TestListScopesToRecipient(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewService(repo)
	recipientID := uuid.New()

	_, _, err := svc.List(context.Background(), recipientID, true, model.Pagination{Page: 2, PageSize: 10})
	require.NoError(t, err)

	require.NotNil(t, repo.lastFilter)
	assert.Equal(t, recipientID, repo.lastFilter.RecipientID)
	assert.True(t, repo.lastFilter.UnreadOnly)
	assert.Equal(t, 2, repo.lastFilter.Page)
}

func TestMarkReadStampsUTC(t *testing.T) {
	repo := &fakeNotificationRepo{}
	svc := NewService(repo)
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	}

	id, recipientID := uuid.New(), uuid.New()
	require.NoError(t, svc.MarkRead(context.Background(), id, recipientID))

	assert.Equal(t, id, repo.lastReadID)
	assert.Equal(t, recipientID, repo.lastReadUser)
	assert.Equal(t, time.UTC, repo.lastReadAt.Location())
}

func TestMarkReadPropagatesNotFound(t *testing.T) {
	repo := &fakeNotificationRepo{markErr: model.ErrNotificationNotFound}
	svc := NewService(repo)

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, model.ErrNotificationNotFound)
}

func TestMarkAllReadReturnsCount(t *testing.T) {
	svc := NewService(&fakeNotificationRepo{})

	count, err := svc.MarkAllRead(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestListWrapsErrors(t *testing.T) {
	repo := &fakeNotificationRepo{listErr: errors.New("boom")}
	svc := NewService(repo)

	_, _, err := svc.List(context.Background(), uuid.New(), false, model.Pagination{})
	assert.ErrorContains(t, err, "failed to list notifications")
}
