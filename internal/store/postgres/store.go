// Package postgres implements the reminder store ports on pgx. Queries run
// through the prepared statements registered in internal/db.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// Stores bundles all pgx-backed adapters over one pool.
type Stores struct {
	Treatments    *TreatmentStore
	Medications   *MedicationStore
	Intakes       *IntakeStore
	Notifications *NotificationStore
	Preferences   *PreferenceStore
	Subscriptions *SubscriptionStore
}

// New creates the full adapter set.
func New(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Treatments:    &TreatmentStore{pool: pool},
		Medications:   &MedicationStore{pool: pool},
		Intakes:       &IntakeStore{pool: pool},
		Notifications: &NotificationStore{pool: pool},
		Preferences:   &PreferenceStore{pool: pool},
		Subscriptions: &SubscriptionStore{pool: pool},
	}
}

// Interface conformance.
var (
	_ reminder.TreatmentStore    = (*TreatmentStore)(nil)
	_ reminder.MedicationStore   = (*MedicationStore)(nil)
	_ reminder.IntakeStore       = (*IntakeStore)(nil)
	_ reminder.NotificationStore = (*NotificationStore)(nil)
	_ reminder.PreferenceStore   = (*PreferenceStore)(nil)
	_ reminder.SubscriptionStore = (*SubscriptionStore)(nil)
)
