package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/wowfoxz/botiquin-data/internal/schedule"
)

// StartWorker runs scheduler passes on a fixed interval. Blocks until ctx
// is cancelled. Intended to be called with `go`.
//
// The interval must not exceed the 5-minute due window or doses are
// silently skipped; intervals above it are clamped with a warning.
func StartWorker(ctx context.Context, s *Scheduler, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	if interval > schedule.DueWindow {
		logger.Warn("reminder interval exceeds due window, clamping",
			"interval", interval, "due_window", schedule.DueWindow)
		interval = schedule.DueWindow
	}

	logger.Info("Reminder worker started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result := s.Run(ctx, time.Now())
			if !result.Success {
				logger.Error("reminder pass failed", "errors", result.Errors)
			}
		case <-ctx.Done():
			logger.Info("Reminder worker stopped")
			return
		}
	}
}
