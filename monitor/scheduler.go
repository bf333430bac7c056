package monitor

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler runs monitoring cycles on a fixed interval. The first cycle
// starts immediately.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler builds a Scheduler around svc.
func NewScheduler(svc *Service, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{svc: svc, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, executing one cycle per interval.
// Cycle failures are logged, not fatal: one bad portal render must not
// stop the monitor.
func (s *Scheduler) Run(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.svc.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("scheduler: previous run still in progress, skipping")
	case err != nil:
		s.logger.Error("scheduler: run failed", "error", err)
	default:
		s.logger.Info("scheduler: run complete",
			"changes", report.HasChanges(),
			"next_run", time.Now().Add(s.interval).Format(time.RFC3339))
	}
}
