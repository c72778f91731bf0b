package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// NotificationStore persists reminder records. The table carries a unique
// index on (treatment_medication_id, dose_index, channel), so the insert's
// ON CONFLICT clause makes de-duplication safe under overlapping passes.
type NotificationStore struct {
	pool *pgxpool.Pool
}

// Status reports whether a record exists for the key and whether it was sent.
func (s *NotificationStore) Status(ctx context.Context, treatmentMedicationID string, doseIndex int, channel reminder.Channel) (exists, sent bool, err error) {
	err = s.pool.QueryRow(ctx, "notification_status", treatmentMedicationID, doseIndex, string(channel)).Scan(&sent)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("notification status: %w", err)
	}
	return true, sent, nil
}

// Create inserts a record, reporting false when the key already exists.
func (s *NotificationStore) Create(ctx context.Context, n reminder.Notification) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (
			treatment_id, treatment_medication_id, dose_index, channel,
			scheduled_for, sent
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (treatment_medication_id, dose_index, channel) DO NOTHING`,
		n.TreatmentID, n.TreatmentMedicationID, n.DoseIndex, string(n.Channel),
		n.ScheduledFor, n.Sent)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkSent flips the sent flag after successful delivery.
func (s *NotificationStore) MarkSent(ctx context.Context, treatmentMedicationID string, doseIndex int, channel reminder.Channel) error {
	_, err := s.pool.Exec(ctx, "notification_mark_sent", treatmentMedicationID, doseIndex, string(channel))
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}
