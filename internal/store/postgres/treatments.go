package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// TreatmentStore lists active treatments with their medication lines.
type TreatmentStore struct {
	pool *pgxpool.Pool
}

// ListActive returns active treatments ending at or after now, with
// medication lines loaded.
func (s *TreatmentStore) ListActive(ctx context.Context, now time.Time) ([]reminder.Treatment, error) {
	rows, err := s.pool.Query(ctx, "active_treatments", now)
	if err != nil {
		return nil, fmt.Errorf("list active treatments: %w", err)
	}
	defer rows.Close()

	var treatments []reminder.Treatment
	for rows.Next() {
		var t reminder.Treatment
		if err := rows.Scan(&t.ID, &t.UserID, &t.PatientID, &t.PatientName, &t.EndDate, &t.IsActive); err != nil {
			return nil, fmt.Errorf("scan treatment: %w", err)
		}
		treatments = append(treatments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range treatments {
		lines, err := s.lines(ctx, treatments[i].ID)
		if err != nil {
			return nil, err
		}
		treatments[i].Medications = lines
	}
	return treatments, nil
}

func (s *TreatmentStore) lines(ctx context.Context, treatmentID string) ([]reminder.TreatmentMedication, error) {
	rows, err := s.pool.Query(ctx, "treatment_lines", treatmentID)
	if err != nil {
		return nil, fmt.Errorf("list treatment lines: %w", err)
	}
	defer rows.Close()

	var lines []reminder.TreatmentMedication
	for rows.Next() {
		var tm reminder.TreatmentMedication
		var specificStart *time.Time
		if err := rows.Scan(
			&tm.ID, &tm.TreatmentID, &tm.MedicationID, &tm.MedicationName,
			&tm.Dosage, &tm.FrequencyHours, &tm.DurationDays,
			&tm.StartMode, &specificStart, &tm.CreatedAt, &tm.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan treatment line: %w", err)
		}
		if specificStart != nil {
			tm.SpecificStart = *specificStart
		}
		lines = append(lines, tm)
	}
	return lines, rows.Err()
}
