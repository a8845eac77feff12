package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler refreshes the service on a fixed interval.
type Scheduler struct {
	svc      *Service
	interval time.Duration
}

// NewScheduler creates a scheduler. A non-positive interval disables it.
func NewScheduler(svc *Service, interval time.Duration) *Scheduler {
	return &Scheduler{svc: svc, interval: interval}
}

// Run refreshes once when the current snapshot is stale and then on every
// tick until ctx is cancelled.
func (sc *Scheduler) Run(ctx context.Context) {
	logger := slog.Default().With(slog.String("service", "ingestion-scheduler"))
	if sc.interval <= 0 {
		logger.Info("scheduler disabled")
		return
	}

	if sc.svc.IsStale(sc.svc.now()) {
		sc.refresh(ctx, logger)
	}

	ticker := time.NewTicker(sc.interval)
	defer ticker.Stop()

	logger.Info("scheduler started", slog.Duration("interval", sc.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			sc.refresh(ctx, logger)
		}
	}
}

func (sc *Scheduler) refresh(ctx context.Context, logger *slog.Logger) {
	if _, changed, err := sc.svc.Refresh(ctx); err != nil {
		logger.Error("scheduled refresh failed", slog.String("error", err.Error()))
	} else if !changed {
		logger.Info("scheduled refresh found no new data")
	}
}
