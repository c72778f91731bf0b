// Package maintenance runs periodic background tasks as Go tickers.
// Replaces pg_cron — all scheduled work is driven from Go since the API is
// already a persistent, long-running service.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval    time.Duration // Old sent/failed notification rows
	DeactivateInterval time.Duration // Treatments past their end date
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval:    30 * time.Minute,
		DeactivateInterval: 1 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pool *pgxpool.Pool, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"deactivate", cfg.DeactivateInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	// Cleanup: remove sent notification rows once they are old news
	if cfg.CleanupInterval > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, pool, logger) })
	}

	// Deactivate: close out treatments whose window has ended
	if cfg.DeactivateInterval > 0 {
		t := time.NewTicker(cfg.DeactivateInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { deactivateEnded(ctx, pool, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup removes notification rows older than 30 days that were sent. The
// de-duplication key only matters while a dose can still be due, so old
// rows are pure noise.
func cleanup(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM notifications
		WHERE sent AND created_at < NOW() - INTERVAL '30 days'`)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old notifications", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Cleanup: purged old notifications", "count", tag.RowsAffected())
	}
}

// deactivateEnded flips the active flag on treatments whose end date has
// passed, so the reminder pass stops loading them.
func deactivateEnded(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		UPDATE treatments SET is_active = false
		WHERE is_active AND end_date < NOW()`)
	if err != nil {
		logger.Warn("Deactivate: failed to close ended treatments", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Deactivate: closed ended treatments", "count", tag.RowsAffected())
	}
}
