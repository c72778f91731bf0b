// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowfoxz/botiquin-data/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and reminder
// layers use. Prepared statements eliminate parse overhead on every tick.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Reminder: active treatments with their patient
		"active_treatments": `
			SELECT t.id::text, t.user_id::text,
			       COALESCE(t.patient_id::text, ''), COALESCE(p.name, ''),
			       t.end_date, t.is_active
			FROM treatments t
			LEFT JOIN patients p ON p.id = t.patient_id
			WHERE t.is_active AND t.end_date >= $1
			ORDER BY t.id`,

		// Reminder: medication lines of one treatment
		"treatment_lines": `
			SELECT tm.id::text, tm.treatment_id::text, tm.medication_id::text,
			       m.name, COALESCE(tm.dosage, ''),
			       tm.frequency_hours, tm.duration_days,
			       tm.start_mode, tm.specific_start_time, tm.created_at,
			       tm.is_active
			FROM treatment_medications tm
			JOIN medications m ON m.id = tm.medication_id
			WHERE tm.treatment_id = $1
			ORDER BY tm.created_at`,

		// Reminder: intake suppression lookup
		"intake_timestamps": `
			SELECT taken_at FROM intake_logs
			WHERE medication_id = $1 AND consumer_id = $2
			  AND taken_at BETWEEN $3 AND $4`,

		// Reminder: notification de-duplication
		"notification_status": `
			SELECT sent FROM notifications
			WHERE treatment_medication_id = $1 AND dose_index = $2 AND channel = $3`,
		"notification_mark_sent": `
			UPDATE notifications SET sent = true, sent_at = NOW()
			WHERE treatment_medication_id = $1 AND dose_index = $2 AND channel = $3`,

		// Reminder: inventory alerts
		"tracked_medications": `
			SELECT id::text, user_id::text, name, expiration_date, current_quantity
			FROM medications
			WHERE NOT archived AND current_quantity >= 0`,

		// Preferences
		"preferences_by_user": `
			SELECT push_enabled, email_enabled, browser_enabled, sound_enabled,
			       days_before_expiration, low_stock_threshold
			FROM notification_preferences
			WHERE user_id = $1`,

		// Push subscriptions
		"subscriptions_by_user": `
			SELECT id::text, user_id::text, endpoint, p256dh, auth
			FROM push_subscriptions
			WHERE user_id = $1`,
		"subscription_delete": "DELETE FROM push_subscriptions WHERE id = $1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
