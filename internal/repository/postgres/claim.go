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

type claimRepository struct {
	BaseRepository
}

func NewClaimRepository(base BaseRepository) repository.ClaimRepository {
	return &claimRepository{base}
}

func (r *claimRepository) Create(ctx context.Context, claim *model.Claim) error {
	query := `
		INSERT INTO claims (
			id, claim_number, patient_id, status, extracted_data, documents,
			status_history, assigned_hospital, assigned_insurer, version,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	claim.Version = 1
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now()
	}
	claim.UpdatedAt = claim.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		claim.ID,
		claim.ClaimNumber,
		claim.PatientID,
		claim.Status,
		claim.ExtractedData,
		claim.Documents,
		claim.StatusHistory,
		claim.AssignedHospital,
		claim.AssignedInsurer,
		claim.Version,
		claim.CreatedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create claim: %w", err)
	}
	return nil
}

func (r *claimRepository) Get(ctx context.Context, id uuid.UUID) (*model.Claim, error) {
	query := `SELECT * FROM claims WHERE id = $1`
	var claim model.Claim
	err := r.db.GetContext(ctx, &claim, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return &claim, nil
}

func (r *claimRepository) GetByClaimNumber(ctx context.Context, claimNumber string) (*model.Claim, error) {
	query := `SELECT * FROM claims WHERE claim_number = $1`
	var claim model.Claim
	err := r.db.GetContext(ctx, &claim, query, claimNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim by number: %w", err)
	}
	return &claim, nil
}

func (r *claimRepository) List(ctx context.Context, filter *model.ClaimFilter) ([]*model.Claim, int64, error) {
	baseQuery := `FROM claims WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		baseQuery += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.PatientID != uuid.Nil {
		args = append(args, filter.PatientID)
		baseQuery += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int64
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count claims: %w", err)
	}

	filter.Normalize()
	args = append(args, filter.Limit(), filter.Offset())
	query := "SELECT * " + baseQuery + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	var claims []*model.Claim
	if err := r.db.SelectContext(ctx, &claims, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list claims: %w", err)
	}
	return claims, total, nil
}

// CompareAndSwap writes the claim's mutable fields conditionally on the
// version the caller read. The WHERE clause matches the pre-update version,
// so exactly one of two racing writers sees RowsAffected == 1. On success
// the claim's Version field is advanced to the stored value.
func (r *claimRepository) CompareAndSwap(ctx context.Context, claim *model.Claim) error {
	query := `
		UPDATE claims
		SET status = $1,
			extracted_data = $2,
			documents = $3,
			status_history = $4,
			assigned_hospital = $5,
			assigned_insurer = $6,
			updated_at = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		claim.Status,
		claim.ExtractedData,
		claim.Documents,
		claim.StatusHistory,
		claim.AssignedHospital,
		claim.AssignedInsurer,
		claim.UpdatedAt,
		claim.ID,
		claim.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update claim: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return model.ErrConcurrentModification
	}

	claim.Version++
	return nil
}

func (r *claimRepository) CountByStatus(ctx context.Context, since time.Time) (map[model.ClaimStatus]int64, error) {
	query := `SELECT status, COUNT(*) AS count FROM claims WHERE 1=1`
	args := []interface{}{}

	if !since.IsZero() {
		args = append(args, since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += ` GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count claims by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ClaimStatus]int64)
	for rows.Next() {
		var status model.ClaimStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// SumClaimAmount totals the extracted claim amounts, optionally limited
// to one status and/or a creation window.
func (r *claimRepository) SumClaimAmount(ctx context.Context, status model.ClaimStatus, since time.Time) (float64, error) {
	query := `
		SELECT COALESCE(SUM((extracted_data->>'claim_amount')::numeric), 0)
		FROM claims
		WHERE extracted_data->>'claim_amount' IS NOT NULL
	`
	args := []interface{}{}

	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !since.IsZero() {
		args = append(args, since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	var total float64
	if err := r.db.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to sum claim amounts: %w", err)
	}
	return total, nil
}
