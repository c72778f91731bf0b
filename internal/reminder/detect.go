package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/wowfoxz/botiquin-data/internal/schedule"
)

// DetectDue finds the doses of a treatment that are due now and not already
// taken. Only the single nearest dose per medication line is considered —
// missed doses are never reported retroactively. Errors on individual
// medication lines (bad parameters, intake lookup failures) are logged and
// skipped so one bad record never blocks the rest.
func DetectDue(ctx context.Context, now time.Time, t Treatment, intakes IntakeStore, logger *slog.Logger) []DueDose {
	var due []DueDose

	for _, tm := range t.Medications {
		if !tm.IsActive {
			continue
		}

		tl, err := tm.Timeline()
		if err != nil {
			logger.Warn("invalid schedule parameters",
				"treatment_medication_id", tm.ID, "error", err)
			continue
		}

		k, doseAt, ok := tl.DueDose(now)
		if !ok {
			continue
		}

		taken, err := doseTaken(ctx, intakes, t, tm.MedicationID, doseAt)
		if err != nil {
			logger.Warn("intake lookup failed",
				"treatment_medication_id", tm.ID, "error", err)
			continue
		}
		if taken {
			continue
		}

		due = append(due, DueDose{
			Treatment:    t,
			Medication:   tm,
			DoseIndex:    k,
			DoseAt:       doseAt,
			ConsumerID:   t.ConsumerID(),
			ConsumerName: t.PatientName,
		})
	}
	return due
}

// doseTaken reports whether an intake was logged within the tolerance
// window around the expected dose, for either the treatment's user or its
// patient — whoever registered the intake.
func doseTaken(ctx context.Context, intakes IntakeStore, t Treatment, medicationID string, doseAt time.Time) (bool, error) {
	from := doseAt.Add(-schedule.IntakeTolerance)
	to := doseAt.Add(schedule.IntakeTolerance)

	consumers := []string{t.UserID}
	if t.PatientID != "" && t.PatientID != t.UserID {
		consumers = append(consumers, t.PatientID)
	}

	for _, consumerID := range consumers {
		stamps, err := intakes.Timestamps(ctx, medicationID, consumerID, from, to)
		if err != nil {
			return false, err
		}
		if schedule.TakenNear(doseAt, stamps) {
			return true, nil
		}
	}
	return false, nil
}
