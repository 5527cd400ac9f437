package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

// Create appends an entry to the audit log. There is no update or delete
// path; the table is insert-only.
func (r *auditRepository) Create(ctx context.Context, entry *model.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (
			id, claim_id, actor_id, actor_role, action,
			from_status, to_status, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.ClaimID,
		entry.ActorID,
		entry.ActorRole,
		entry.Action,
		entry.FromStatus,
		entry.ToStatus,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log entry: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*model.AuditLogEntry, error) {
	query := `
		SELECT * FROM audit_log
		WHERE claim_id = $1
		ORDER BY created_at ASC
	`
	var entries []*model.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, claimID); err != nil {
		return nil, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	return entries, nil
}

func (r *auditRepository) List(ctx context.Context, filter *model.AuditFilter) ([]*model.AuditLogEntry, int64, error) {
	baseQuery := `FROM audit_log WHERE 1=1`
	var args []interface{}

	if filter.ClaimID != uuid.Nil {
		args = append(args, filter.ClaimID)
		baseQuery += fmt.Sprintf(" AND claim_id = $%d", len(args))
	}
	if filter.ActorID != uuid.Nil {
		args = append(args, filter.ActorID)
		baseQuery += fmt.Sprintf(" AND actor_id = $%d", len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		baseQuery += fmt.Sprintf(" AND action = $%d", len(args))
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit log entries: %w", err)
	}

	filter.Normalize()
	args = append(args, filter.Limit(), filter.Offset())
	query := "SELECT * " + baseQuery + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var entries []*model.AuditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit log entries: %w", err)
	}
	return entries, total, nil
}
