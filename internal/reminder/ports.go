package reminder

import (
	"context"
	"time"
)

// Store ports. The postgres adapters in internal/store/postgres implement
// these; tests use in-memory fakes.

// TreatmentStore lists treatments eligible for dose reminders.
type TreatmentStore interface {
	// ListActive returns active treatments whose end date is at or after
	// now, with their medication lines loaded.
	ListActive(ctx context.Context, now time.Time) ([]Treatment, error)
}

// IntakeStore looks up logged dose administrations.
type IntakeStore interface {
	// Timestamps returns administration times for a medication and
	// consumer within [from, to].
	Timestamps(ctx context.Context, medicationID, consumerID string, from, to time.Time) ([]time.Time, error)
}

// NotificationStore persists reminder records keyed by
// (treatment_medication, dose_index, channel).
type NotificationStore interface {
	// Status reports whether a record exists for the key and whether it
	// was already sent.
	Status(ctx context.Context, treatmentMedicationID string, doseIndex int, channel Channel) (exists, sent bool, err error)
	// Create inserts a record, reporting false when the key already
	// exists (ON CONFLICT DO NOTHING — safe under overlapping passes).
	Create(ctx context.Context, n Notification) (created bool, err error)
	// MarkSent flips the sent flag after successful delivery.
	MarkSent(ctx context.Context, treatmentMedicationID string, doseIndex int, channel Channel) error
}

// PreferenceStore reads per-user channel toggles and thresholds.
type PreferenceStore interface {
	// Get returns the user's preferences, or DefaultPreferences when the
	// user never saved any.
	Get(ctx context.Context, userID string) (Preferences, error)
}

// SubscriptionStore manages registered Web Push endpoints.
type SubscriptionStore interface {
	ListByUser(ctx context.Context, userID string) ([]Subscription, error)
	Delete(ctx context.Context, subscriptionID string) error
}

// MedicationStore lists inventory for the expiration and low-stock passes.
type MedicationStore interface {
	// ListTracked returns every medication still held in any cabinet.
	ListTracked(ctx context.Context) ([]Medication, error)
}

// PushTransport delivers one message to one subscription.
type PushTransport interface {
	Send(ctx context.Context, sub Subscription, msg PushMessage) (DeliveryStatus, error)
}
