package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medifast/claims-api/internal/model"
	"github.com/medifast/claims-api/internal/repository"
)

// Service is the durable sink for transition audit records. Record is
// called exactly once per decided transition attempt; entries are
// append-only and never rewritten.
type Service struct {
	repo repository.AuditRepository
	now  func() time.Time

	mu          sync.Mutex
	lastByClaim map[uuid.UUID]time.Time
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{
		repo:        repo,
		now:         time.Now,
		lastByClaim: make(map[uuid.UUID]time.Time),
	}
}

// Record stamps and persists one audit entry. Timestamps are strictly
// monotonic per claim: a reading that does not advance past the claim's
// previous entry is bumped by a microsecond, so entries for one claim
// never interleave out of order even under clock skew or bursts faster
// than clock resolution.
func (s *Service) Record(ctx context.Context, entry *model.AuditLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = s.nextTimestamp(entry.ClaimID)

	return s.repo.Create(ctx, entry)
}

func (s *Service) nextTimestamp(claimID uuid.UUID) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC().Truncate(time.Microsecond)
	if last, ok := s.lastByClaim[claimID]; ok && !ts.After(last) {
		ts = last.Add(time.Microsecond)
	}
	s.lastByClaim[claimID] = ts
	return ts
}

// ListByClaim returns a claim's full audit trail in timestamp order.
func (s *Service) ListByClaim(ctx context.Context, claimID uuid.UUID) ([]*model.AuditLogEntry, error) {
	return s.repo.ListByClaim(ctx, claimID)
}

// List returns audit entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter *model.AuditFilter) ([]*model.AuditLogEntry, int64, error) {
	return s.repo.List(ctx, filter)
}
