package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// PreferenceStore reads and writes per-user channel toggles and thresholds.
type PreferenceStore struct {
	pool *pgxpool.Pool
}

// Get returns the user's preferences, falling back to defaults when the
// user never saved any.
func (s *PreferenceStore) Get(ctx context.Context, userID string) (reminder.Preferences, error) {
	p := reminder.Preferences{UserID: userID}
	err := s.pool.QueryRow(ctx, "preferences_by_user", userID).Scan(
		&p.Push, &p.Email, &p.Browser, &p.Sound,
		&p.DaysBeforeExpiration, &p.LowStockThreshold)
	if errors.Is(err, pgx.ErrNoRows) {
		return reminder.DefaultPreferences(userID), nil
	}
	if err != nil {
		return reminder.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	return p, nil
}

// Put upserts the user's preferences.
func (s *PreferenceStore) Put(ctx context.Context, p reminder.Preferences) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (
			user_id, push_enabled, email_enabled, browser_enabled, sound_enabled,
			days_before_expiration, low_stock_threshold, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			push_enabled = EXCLUDED.push_enabled,
			email_enabled = EXCLUDED.email_enabled,
			browser_enabled = EXCLUDED.browser_enabled,
			sound_enabled = EXCLUDED.sound_enabled,
			days_before_expiration = EXCLUDED.days_before_expiration,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			updated_at = NOW()`,
		p.UserID, p.Push, p.Email, p.Browser, p.Sound,
		p.DaysBeforeExpiration, p.LowStockThreshold)
	if err != nil {
		return fmt.Errorf("put preferences: %w", err)
	}
	return nil
}
