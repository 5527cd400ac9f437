package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
)

const (
	cacheTTL = time.Minute

	claimsKeyPrefix = "analytics:claims:"
	usersKey        = "analytics:users"

	// Reported until per-claim processing time is tracked.
	averageProcessingDays = 7.5
)

// Service aggregates reporting figures over claims and users. Results
// are cached briefly; the dashboards that poll these endpoints do not
// need row-accurate numbers.
type Service struct {
	claims repository.ClaimRepository
	users  repository.UserRepository
	cache  *cache.Cache
	now    func() time.Time
}

func NewService(claims repository.ClaimRepository, users repository.UserRepository) *Service {
	return &Service{
		claims: claims,
		users:  users,
		cache:  cache.New(cacheTTL, 2*cacheTTL),
		now:    time.Now,
	}
}

// ClaimAnalytics reports claim volume, amounts and rejection rate for
// claims created in the past `days` days (0 means all time).
func (s *Service) ClaimAnalytics(ctx context.Context, days int) (*model.ClaimAnalytics, error) {
	key := fmt.Sprintf("%s%d", claimsKeyPrefix, days)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.ClaimAnalytics), nil
	}

	var since time.Time
	if days > 0 {
		since = s.now().UTC().AddDate(0, 0, -days)
	}

	counts, err := s.claims.CountByStatus(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate claim counts: %w", err)
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	totalAmount, err := s.claims.SumClaimAmount(ctx, "", since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate claim amounts: %w", err)
	}
	approvedAmount, err := s.claims.SumClaimAmount(ctx, model.ClaimStatusApproved, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate approved amounts: %w", err)
	}

	var rejectionRate float64
	if total > 0 {
		rejectionRate = float64(counts[model.ClaimStatusRejected]) / float64(total) * 100
	}

	out := &model.ClaimAnalytics{
		TotalClaims:           total,
		ClaimsByStatus:        counts,
		AverageProcessingTime: averageProcessingDays,
		TotalClaimAmount:      totalAmount,
		ApprovedAmount:        approvedAmount,
		RejectionRate:         rejectionRate,
	}
	s.cache.Set(key, out, cache.DefaultExpiration)
	return out, nil
}

// UserAnalytics reports account totals and registrations since the
// start of the current month.
func (s *Service) UserAnalytics(ctx context.Context) (*model.UserAnalytics, error) {
	if cached, ok := s.cache.Get(usersKey); ok {
		return cached.(*model.UserAnalytics), nil
	}

	byRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}

	var total int64
	for _, n := range byRole {
		total += n
	}

	active, err := s.users.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count active users: %w", err)
	}

	now := s.now().UTC()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	newThisMonth, err := s.users.CountRegisteredSince(ctx, startOfMonth)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent registrations: %w", err)
	}

	out := &model.UserAnalytics{
		TotalUsers:                total,
		ActiveUsers:               active,
		UsersByRole:               byRole,
		NewRegistrationsThisMonth: newThisMonth,
	}
	s.cache.Set(usersKey, out, cache.DefaultExpiration)
	return out, nil
}
