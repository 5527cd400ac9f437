package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
)

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, recipient_id, title, message, notification_type,
			related_claim_id, metadata, is_read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		notification.ID,
		notification.RecipientID,
		notification.Title,
		notification.Message,
		notification.Type,
		notification.RelatedClaimID,
		notification.Metadata,
		notification.IsRead,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	query := `SELECT * FROM notifications WHERE id = $1`
	var notification model.Notification
	err := r.db.GetContext(ctx, &notification, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &notification, nil
}

func (r *notificationRepository) List(ctx context.Context, filter *model.NotificationFilter) ([]*model.Notification, int64, error) {
	baseQuery := `FROM notifications WHERE recipient_id = $1`
	args := []interface{}{filter.RecipientID}

	if filter.UnreadOnly {
		baseQuery += " AND is_read = FALSE"
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	filter.Normalize()
	args = append(args, filter.Limit(), filter.Offset())
	query := "SELECT * " + baseQuery + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, recipientID); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips the read flag for a notification owned by recipientID.
// The ownership check lives in the WHERE clause so callers cannot mark
// another user's notification.
func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $1
		WHERE id = $2 AND recipient_id = $3 AND is_read = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, at, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return model.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $1
		WHERE recipient_id = $2 AND is_read = FALSE
	`
	result, err := r.db.ExecContext(ctx, query, at, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}
