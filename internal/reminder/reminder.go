// Package reminder implements the dose-notification scheduler: detect doses
// that are due now, suppress the ones already taken, pick the user's enabled
// channels, and deliver without duplicates.
//
// Pipeline per pass: expiration alerts → low-stock alerts → due-dose
// detection → per-channel dispatch. All coordination state lives in the
// stores; a pass is stateless and safe to re-run.
package reminder

import (
	"time"

	"github.com/wowfoxz/botiquin-data/internal/schedule"
)

// --------------------------------------------------------------------------
// Channels
// --------------------------------------------------------------------------

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelPush    Channel = "push"
	ChannelEmail   Channel = "email"
	ChannelBrowser Channel = "browser"
	ChannelSound   Channel = "sound"
)

// Channels lists every channel in dispatch order.
var Channels = []Channel{ChannelPush, ChannelEmail, ChannelBrowser, ChannelSound}

// leadOffsets are the nominal per-channel advance-warning offsets. Detection
// runs on the single 5-minute due window for every channel; the offset only
// determines the recorded scheduled_for timestamp.
var leadOffsets = map[Channel]time.Duration{
	ChannelPush:    30 * time.Minute,
	ChannelEmail:   60 * time.Minute,
	ChannelBrowser: 15 * time.Minute,
	ChannelSound:   5 * time.Minute,
}

// LeadOffset returns the nominal advance-warning offset for a channel.
func LeadOffset(c Channel) time.Duration { return leadOffsets[c] }

// --------------------------------------------------------------------------
// Start modes
// --------------------------------------------------------------------------

const (
	StartImmediate    = "immediate"
	StartSpecificTime = "specific-time"
)

// --------------------------------------------------------------------------
// Domain types
// --------------------------------------------------------------------------

// Treatment is a course of medications for a patient. PatientID is empty
// when the treatment belongs to the account holder.
type Treatment struct {
	ID          string
	UserID      string
	PatientID   string
	PatientName string
	EndDate     time.Time
	IsActive    bool
	Medications []TreatmentMedication
}

// ConsumerID returns the person the doses are for: the patient profile when
// one is linked, otherwise the owning user.
func (t Treatment) ConsumerID() string {
	if t.PatientID != "" {
		return t.PatientID
	}
	return t.UserID
}

// TreatmentMedication is one medication line within a treatment.
type TreatmentMedication struct {
	ID             string
	TreatmentID    string
	MedicationID   string
	MedicationName string
	Dosage         string
	FrequencyHours int
	DurationDays   int
	StartMode      string
	SpecificStart  time.Time
	CreatedAt      time.Time
	IsActive       bool
}

// EffectiveStart is the reference time the dose timeline is anchored to:
// the specific start time when one was chosen, otherwise creation time.
func (tm TreatmentMedication) EffectiveStart() time.Time {
	if tm.StartMode == StartSpecificTime && !tm.SpecificStart.IsZero() {
		return tm.SpecificStart
	}
	return tm.CreatedAt
}

// Timeline builds the validated dose timeline for this medication line.
func (tm TreatmentMedication) Timeline() (schedule.Timeline, error) {
	return schedule.NewTimeline(tm.EffectiveStart(), tm.FrequencyHours, tm.DurationDays)
}

// Medication is an inventory item tracked for expiration and stock alerts.
type Medication struct {
	ID             string
	UserID         string
	Name           string
	ExpirationDate time.Time
	Quantity       float64
}

// DueDose is one dose occurrence that is due now and not yet taken.
type DueDose struct {
	Treatment    Treatment
	Medication   TreatmentMedication
	DoseIndex    int
	DoseAt       time.Time
	ConsumerID   string
	ConsumerName string
}

// Notification is one persisted reminder record. The composite key
// (TreatmentMedicationID, DoseIndex, Channel) is the de-duplication key and
// is enforced by a unique index in the store.
type Notification struct {
	TreatmentID           string
	TreatmentMedicationID string
	DoseIndex             int
	Channel               Channel
	ScheduledFor          time.Time
	Sent                  bool
}

// Subscription is one Web Push endpoint registered by a user's browser.
type Subscription struct {
	ID       string
	UserID   string
	Endpoint string
	P256dh   string
	Auth     string
}

// Preferences are a user's channel toggles and alert thresholds.
type Preferences struct {
	UserID               string
	Push                 bool
	Email                bool
	Browser              bool
	Sound                bool
	DaysBeforeExpiration int
	LowStockThreshold    float64
}

// Enabled reports whether a channel is switched on.
func (p Preferences) Enabled(c Channel) bool {
	switch c {
	case ChannelPush:
		return p.Push
	case ChannelEmail:
		return p.Email
	case ChannelBrowser:
		return p.Browser
	case ChannelSound:
		return p.Sound
	}
	return false
}

// DefaultPreferences returns the toggles applied before a user has saved
// any: in-app channels on, email off.
func DefaultPreferences(userID string) Preferences {
	return Preferences{
		UserID:               userID,
		Push:                 true,
		Browser:              true,
		Sound:                true,
		DaysBeforeExpiration: 7,
		LowStockThreshold:    5,
	}
}

// PushMessage is the payload handed to the push transport.
type PushMessage struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Icon    string `json:"icon"`
	Badge   string `json:"badge"`
	Vibrate []int  `json:"vibrate,omitempty"`
	URL     string `json:"url"`
}

// DeliveryStatus classifies one push send attempt.
type DeliveryStatus int

const (
	// Delivered means the push service accepted the message.
	Delivered DeliveryStatus = iota
	// SubscriptionGone means the endpoint is permanently dead (HTTP
	// 404/410) and must be removed from the store.
	SubscriptionGone
	// TransientFailure covers network errors, rate limits, and 5xx; the
	// notification stays unsent and is retried while the dose remains in
	// its due window.
	TransientFailure
)
