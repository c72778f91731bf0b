package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// MedicationStore lists cabinet inventory for the alert passes.
type MedicationStore struct {
	pool *pgxpool.Pool
}

// ListTracked returns every non-archived medication.
func (s *MedicationStore) ListTracked(ctx context.Context) ([]reminder.Medication, error) {
	rows, err := s.pool.Query(ctx, "tracked_medications")
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	var meds []reminder.Medication
	for rows.Next() {
		var m reminder.Medication
		var expires *time.Time
		if err := rows.Scan(&m.ID, &m.UserID, &m.Name, &expires, &m.Quantity); err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		if expires != nil {
			m.ExpirationDate = *expires
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}
