package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/medifast/claims-api/internal/repository"
	"github.com/medifast/claims-api/pkg/logger"
)

// OutboxCleanupWorker prunes processed outbox rows past their retention
// window. Only processed rows are touched; pending, retry and failed
// rows stay for operators to inspect.
type OutboxCleanupWorker struct {
	repo            repository.OutboxRepository
	retentionDays   int
	cleanupInterval time.Duration
	logger          *logger.Logger
}

func NewOutboxCleanupWorker(repo repository.OutboxRepository, retentionDays int, cleanupInterval time.Duration, l *logger.Logger) *OutboxCleanupWorker {
	return &OutboxCleanupWorker{
		repo:            repo,
		retentionDays:   retentionDays,
		cleanupInterval: cleanupInterval,
		logger:          l,
	}
}

func (w *OutboxCleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.cleanup(ctx); err != nil {
				w.logger.Error(err, "outbox cleanup failed")
			}
		}
	}
}

func (w *OutboxCleanupWorker) cleanup(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune processed outbox events: %w", err)
	}

	if rows > 0 {
		w.logger.Info("pruned processed outbox events",
			"rows", rows, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
