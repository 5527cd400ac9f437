package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
)

// Service is the recipient-facing side of notifications: listing and
// read-state management. Creation happens in the claim dispatcher,
// delivery in the outbox worker.
type Service struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewService(repo repository.NotificationRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, p model.Pagination) ([]*model.Notification, int64, error) {
	filter := &model.NotificationFilter{
		RecipientID: recipientID,
		UnreadOnly:  unreadOnly,
		Pagination:  p,
	}
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read. The recipient scoping lives in
// the repository, so marking another user's notification reports
// not-found rather than leaking its existence.
func (s *Service) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, recipientID, s.now().UTC())
}

// MarkAllRead marks every unread notification for the recipient and
// returns how many were affected.
func (s *Service) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipientID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return count, nil
}
