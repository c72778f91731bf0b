package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IntakeStore reads and writes dose-administration records.
type IntakeStore struct {
	pool *pgxpool.Pool
}

// Timestamps returns administration times for a medication and consumer
// within [from, to].
func (s *IntakeStore) Timestamps(ctx context.Context, medicationID, consumerID string, from, to time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx, "intake_timestamps", medicationID, consumerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list intakes: %w", err)
	}
	defer rows.Close()

	var stamps []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan intake: %w", err)
		}
		stamps = append(stamps, ts)
	}
	return stamps, rows.Err()
}

// Register records that a dose was administered. Records are immutable once
// created. Returns the new record's ID.
func (s *IntakeStore) Register(ctx context.Context, medicationID, consumerID string, takenAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO intake_logs (id, medication_id, consumer_id, taken_at)
		VALUES ($1, $2, $3, $4)`,
		id, medicationID, consumerID, takenAt)
	if err != nil {
		return "", fmt.Errorf("register intake: %w", err)
	}
	return id, nil
}
