package jobs

import (
	"context"
	"log/slog"
	"time"

	corpusSvc "lexcorpus/internal/domain/services/corpus"
)

// TTLSweeper periodically deletes local documents past their expiry.
type TTLSweeper struct {
	lifecycle corpusSvc.LifecycleService
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewTTLSweeper creates a sweeper running every interval
func NewTTLSweeper(lifecycle corpusSvc.LifecycleService, interval time.Duration, logger *slog.Logger) *TTLSweeper {
	return &TTLSweeper{
		lifecycle: lifecycle,
		interval:  interval,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunOnce sweeps once and returns the number of deleted documents
func (s *TTLSweeper) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	removed, err := s.lifecycle.SweepExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("TTL sweep failed", "removed", removed, "error", err)
		return removed, err
	}
	s.logger.Debug("TTL sweep completed", "removed", removed, "duration", time.Since(start))
	return removed, nil
}

// Start sweeps immediately and then on every tick until ctx is cancelled.
func (s *TTLSweeper) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Warn("TTL sweeper disabled", "interval", s.interval)
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		_, _ = s.RunOnce(ctx)
		for {
			select {
			case <-ticker.C:
				_, _ = s.RunOnce(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("TTL sweeper started", "interval", s.interval)
}
