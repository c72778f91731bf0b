package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Notification asset references handed to the service worker.
const (
	iconPath  = "/icons/icon-192x192.png"
	badgePath = "/icons/badge-72x72.png"
)

var doseVibration = []int{200, 100, 200}

// Dispatcher decides which channels to notify on for a due dose, avoids
// duplicate sends, and delegates push delivery to the transport. It is the
// only writer of notification records.
type Dispatcher struct {
	Notifications NotificationStore
	Subscriptions SubscriptionStore
	Transport     PushTransport
	Logger        *slog.Logger
}

// DispatchResult counts the outcome of one dispatch call.
type DispatchResult struct {
	Sent   int // notifications delivered or recorded
	Pruned int // dead subscriptions removed
}

// DispatchDose delivers one due dose over every enabled channel.
//
// Browser, sound, and email reminders are client-side channels: the
// persisted record is the delivery, picked up by the frontend. Push
// additionally fans out to the user's subscriptions. The record for each
// channel is created with ON CONFLICT semantics, so a second call for the
// same (medication line, dose index, channel) is a no-op.
func (d *Dispatcher) DispatchDose(ctx context.Context, due DueDose, prefs Preferences) (DispatchResult, error) {
	var res DispatchResult

	for _, ch := range Channels {
		if !prefs.Enabled(ch) {
			continue
		}

		n := Notification{
			TreatmentID:           due.Treatment.ID,
			TreatmentMedicationID: due.Medication.ID,
			DoseIndex:             due.DoseIndex,
			Channel:               ch,
			ScheduledFor:          due.DoseAt.Add(-LeadOffset(ch)),
			Sent:                  ch != ChannelPush,
		}

		if ch != ChannelPush {
			created, err := d.Notifications.Create(ctx, n)
			if err != nil {
				return res, fmt.Errorf("create %s notification: %w", ch, err)
			}
			if created {
				res.Sent++
			}
			continue
		}

		sent, pruned, err := d.dispatchPush(ctx, due, n)
		if err != nil {
			return res, err
		}
		res.Sent += sent
		res.Pruned += pruned
	}
	return res, nil
}

// dispatchPush claims the push record for this dose and fans out to the
// user's subscriptions. A record that exists but was never marked sent is a
// previous transient failure: delivery is retried without creating a
// duplicate, for as long as the dose stays inside its due window.
func (d *Dispatcher) dispatchPush(ctx context.Context, due DueDose, n Notification) (sent, pruned int, err error) {
	exists, alreadySent, err := d.Notifications.Status(ctx, n.TreatmentMedicationID, n.DoseIndex, n.Channel)
	if err != nil {
		return 0, 0, fmt.Errorf("notification status: %w", err)
	}
	if alreadySent {
		return 0, 0, nil
	}
	if !exists {
		created, err := d.Notifications.Create(ctx, n)
		if err != nil {
			return 0, 0, fmt.Errorf("create push notification: %w", err)
		}
		if !created {
			// Lost the race to an overlapping pass; it owns delivery.
			return 0, 0, nil
		}
	}

	subs, err := d.Subscriptions.ListByUser(ctx, due.Treatment.UserID)
	if err != nil {
		return 0, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		d.Logger.Warn("no push subscriptions",
			"user_id", due.Treatment.UserID, "treatment_id", due.Treatment.ID)
		return 0, 0, nil
	}

	delivered, pruned := d.fanOut(ctx, subs, doseMessage(due))
	if delivered > 0 {
		if err := d.Notifications.MarkSent(ctx, n.TreatmentMedicationID, n.DoseIndex, n.Channel); err != nil {
			d.Logger.Warn("mark sent failed",
				"treatment_medication_id", n.TreatmentMedicationID, "error", err)
		}
		sent = 1
	}
	return sent, pruned, nil
}

// fanOut sends one message to every subscription concurrently. Failures are
// isolated per subscription: a dead or hung endpoint never blocks the rest.
// Endpoints the push service reports gone are deleted.
func (d *Dispatcher) fanOut(ctx context.Context, subs []Subscription, msg PushMessage) (delivered, pruned int) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()

			status, err := d.Transport.Send(ctx, sub, msg)

			mu.Lock()
			defer mu.Unlock()
			switch status {
			case Delivered:
				delivered++
			case SubscriptionGone:
				if delErr := d.Subscriptions.Delete(ctx, sub.ID); delErr != nil {
					d.Logger.Warn("delete stale subscription failed",
						"subscription_id", sub.ID, "error", delErr)
				} else {
					d.Logger.Info("removed stale push subscription",
						"subscription_id", sub.ID, "user_id", sub.UserID)
					pruned++
				}
			case TransientFailure:
				d.Logger.Warn("push delivery failed",
					"subscription_id", sub.ID, "error", err)
			}
		}()
	}
	wg.Wait()
	return delivered, pruned
}

// --------------------------------------------------------------------------
// Inventory alerts — expiration and low stock
// --------------------------------------------------------------------------

// DispatchExpiration pushes an alert when a medication is expired or about
// to expire. Alert pushes have no persistence key and fire once per run.
func (d *Dispatcher) DispatchExpiration(ctx context.Context, med Medication, prefs Preferences, now time.Time) (DispatchResult, error) {
	if !prefs.Push || med.ExpirationDate.IsZero() {
		return DispatchResult{}, nil
	}
	threshold := now.Add(time.Duration(prefs.DaysBeforeExpiration) * 24 * time.Hour)
	if med.ExpirationDate.After(threshold) {
		return DispatchResult{}, nil
	}

	msg := PushMessage{
		Title: "Medication expiring",
		Body:  expirationBody(med, now),
		Icon:  iconPath,
		Badge: badgePath,
		URL:   "/inventory/" + med.ID,
	}
	return d.alertPush(ctx, med.UserID, msg)
}

// DispatchLowStock pushes an alert when remaining stock is at or below the
// user's threshold but not yet exhausted.
func (d *Dispatcher) DispatchLowStock(ctx context.Context, med Medication, prefs Preferences) (DispatchResult, error) {
	if !prefs.Push {
		return DispatchResult{}, nil
	}
	if med.Quantity <= 0 || med.Quantity > prefs.LowStockThreshold {
		return DispatchResult{}, nil
	}

	msg := PushMessage{
		Title: "Low stock",
		Body:  fmt.Sprintf("Only %s of %s left — add it to your shopping list", formatQuantity(med.Quantity), med.Name),
		Icon:  iconPath,
		Badge: badgePath,
		URL:   "/inventory/" + med.ID,
	}
	return d.alertPush(ctx, med.UserID, msg)
}

func (d *Dispatcher) alertPush(ctx context.Context, userID string, msg PushMessage) (DispatchResult, error) {
	subs, err := d.Subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return DispatchResult{}, nil
	}
	delivered, pruned := d.fanOut(ctx, subs, msg)
	sent := 0
	if delivered > 0 {
		sent = 1
	}
	return DispatchResult{Sent: sent, Pruned: pruned}, nil
}

// --------------------------------------------------------------------------
// Message composition
// --------------------------------------------------------------------------

func doseMessage(due DueDose) PushMessage {
	return PushMessage{
		Title:   "Time for a dose",
		Body:    doseBody(due),
		Icon:    iconPath,
		Badge:   badgePath,
		Vibrate: doseVibration,
		URL:     "/treatments/" + due.Treatment.ID,
	}
}

func doseBody(due DueDose) string {
	who := due.ConsumerName
	if who == "" {
		who = "you"
	}
	if due.Medication.Dosage != "" {
		return fmt.Sprintf("%s: %s of %s is due at %s",
			who, due.Medication.Dosage, due.Medication.MedicationName,
			due.DoseAt.Format("15:04"))
	}
	return fmt.Sprintf("%s: %s is due at %s",
		who, due.Medication.MedicationName, due.DoseAt.Format("15:04"))
}

func expirationBody(med Medication, now time.Time) string {
	if med.ExpirationDate.Before(now) {
		return fmt.Sprintf("%s expired on %s — remove it from the cabinet",
			med.Name, med.ExpirationDate.Format("2006-01-02"))
	}
	days := int(med.ExpirationDate.Sub(now).Hours() / 24)
	if days == 0 {
		return fmt.Sprintf("%s expires today", med.Name)
	}
	return fmt.Sprintf("%s expires in %d days", med.Name, days)
}

func formatQuantity(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d units", int64(q))
	}
	return fmt.Sprintf("%.1f units", q)
}
