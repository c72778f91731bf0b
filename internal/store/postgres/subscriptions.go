package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// SubscriptionStore manages registered Web Push endpoints.
type SubscriptionStore struct {
	pool *pgxpool.Pool
}

// ListByUser returns a user's subscriptions.
func (s *SubscriptionStore) ListByUser(ctx context.Context, userID string) ([]reminder.Subscription, error) {
	rows, err := s.pool.Query(ctx, "subscriptions_by_user", userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []reminder.Subscription
	for rows.Next() {
		var sub reminder.Subscription
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Endpoint, &sub.P256dh, &sub.Auth); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Create registers a new endpoint for a user. Re-subscribing an endpoint
// the user already registered refreshes its keys instead of duplicating it.
func (s *SubscriptionStore) Create(ctx context.Context, userID, endpoint, p256dh, auth string) (reminder.Subscription, error) {
	sub := reminder.Subscription{
		ID:       uuid.NewString(),
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, endpoint) DO UPDATE SET
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth
		RETURNING id::text`,
		sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth).Scan(&sub.ID)
	if err != nil {
		return reminder.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	return sub, nil
}

// Delete removes a subscription, either on user unsubscribe or when the
// push service reports the endpoint gone.
func (s *SubscriptionStore) Delete(ctx context.Context, subscriptionID string) error {
	_, err := s.pool.Exec(ctx, "subscription_delete", subscriptionID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}
