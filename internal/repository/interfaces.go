package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medifast/claims-api/internal/model"
)

// All repository interfaces in one file
type (
	// ClaimRepository persists claims. CompareAndSwap is the only write
	// path for status transitions and document appends: it updates the
	// row conditionally on the version the caller previously read and
	// returns model.ErrConcurrentModification when a concurrent writer
	// won the race.
	ClaimRepository interface {
		Create(ctx context.Context, claim *model.Claim) error
		Get(ctx context.Context, id uuid.UUID) (*model.Claim, error)
		GetByClaimNumber(ctx context.Context, claimNumber string) (*model.Claim, error)
		List(ctx context.Context, filter *model.ClaimFilter) ([]*model.Claim, int64, error)
		CompareAndSwap(ctx context.Context, claim *model.Claim) error
		CountByStatus(ctx context.Context, since time.Time) (map[model.ClaimStatus]int64, error)
		SumClaimAmount(ctx context.Context, status model.ClaimStatus, since time.Time) (float64, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		List(ctx context.Context, filter *model.UserFilter) ([]*model.User, int64, error)
		CountByRole(ctx context.Context) (map[model.Role]int64, error)
		CountActive(ctx context.Context) (int64, error)
		CountRegisteredSince(ctx context.Context, since time.Time) (int64, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		List(ctx context.Context, filter *model.NotificationFilter) ([]*model.Notification, int64, error)
		CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error)
		MarkRead(ctx context.Context, id, recipientID uuid.UUID, at time.Time) error
		MarkAllRead(ctx context.Context, recipientID uuid.UUID, at time.Time) (int64, error)
	}

	// AuditRepository is the durable append-only audit sink. Entries are
	// never updated or deleted.
	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditLogEntry) error
		ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*model.AuditLogEntry, error)
		List(ctx context.Context, filter *model.AuditFilter) ([]*model.AuditLogEntry, int64, error)
	}

	// OutboxRepository persists the transactional outbox. Draining runs
	// inside a caller-held transaction so the SKIP LOCKED row locks
	// survive until the batch's status updates commit.
	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		BeginTx(ctx context.Context) (*sqlx.Tx, error)
		GetPendingEventsWithLock(ctx context.Context, tx *sqlx.Tx, limit int) ([]*model.OutboxEvent, error)
		UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
