package reminder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// In-memory fakes for the store ports.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memTreatments struct {
	list []Treatment
	err  error
}

func (m *memTreatments) ListActive(context.Context, time.Time) ([]Treatment, error) {
	return m.list, m.err
}

type memMedications struct {
	list []Medication
	err  error
}

func (m *memMedications) ListTracked(context.Context) ([]Medication, error) {
	return m.list, m.err
}

type memIntakes struct {
	byKey map[string][]time.Time // medicationID|consumerID
	err   error
}

func intakeKey(medicationID, consumerID string) string {
	return medicationID + "|" + consumerID
}

func (m *memIntakes) Timestamps(_ context.Context, medicationID, consumerID string, from, to time.Time) ([]time.Time, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []time.Time
	for _, ts := range m.byKey[intakeKey(medicationID, consumerID)] {
		if !ts.Before(from) && !ts.After(to) {
			out = append(out, ts)
		}
	}
	return out, nil
}

type memNotifications struct {
	mu   sync.Mutex
	rows map[string]*Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{rows: make(map[string]*Notification)}
}

func notifKey(tmID string, doseIndex int, ch Channel) string {
	return fmt.Sprintf("%s|%d|%s", tmID, doseIndex, ch)
}

func (m *memNotifications) Status(_ context.Context, tmID string, doseIndex int, ch Channel) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[notifKey(tmID, doseIndex, ch)]
	if !ok {
		return false, false, nil
	}
	return true, n.Sent, nil
}

func (m *memNotifications) Create(_ context.Context, n Notification) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := notifKey(n.TreatmentMedicationID, n.DoseIndex, n.Channel)
	if _, ok := m.rows[key]; ok {
		return false, nil
	}
	m.rows[key] = &n
	return true, nil
}

func (m *memNotifications) MarkSent(_ context.Context, tmID string, doseIndex int, ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.rows[notifKey(tmID, doseIndex, ch)]; ok {
		n.Sent = true
	}
	return nil
}

func (m *memNotifications) get(tmID string, doseIndex int, ch Channel) (Notification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.rows[notifKey(tmID, doseIndex, ch)]
	if !ok {
		return Notification{}, false
	}
	return *n, true
}

func (m *memNotifications) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memSubscriptions struct {
	mu      sync.Mutex
	byUser  map[string][]Subscription
	deleted []string
}

func newMemSubscriptions(subs ...Subscription) *memSubscriptions {
	m := &memSubscriptions{byUser: make(map[string][]Subscription)}
	for _, s := range subs {
		m.byUser[s.UserID] = append(m.byUser[s.UserID], s)
	}
	return m
}

func (m *memSubscriptions) ListByUser(_ context.Context, userID string) ([]Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUser[userID], nil
}

func (m *memSubscriptions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	for user, subs := range m.byUser {
		kept := subs[:0]
		for _, s := range subs {
			if s.ID != id {
				kept = append(kept, s)
			}
		}
		m.byUser[user] = kept
	}
	return nil
}

type memPrefs struct {
	byUser map[string]Preferences
	errFor map[string]error
}

func (m *memPrefs) Get(_ context.Context, userID string) (Preferences, error) {
	if err := m.errFor[userID]; err != nil {
		return Preferences{}, err
	}
	if p, ok := m.byUser[userID]; ok {
		return p, nil
	}
	return DefaultPreferences(userID), nil
}

type sendCall struct {
	sub Subscription
	msg PushMessage
}

type fakeTransport struct {
	mu    sync.Mutex
	calls []sendCall
	// respond decides the outcome per subscription; nil means Delivered.
	respond func(sub Subscription) (DeliveryStatus, error)
}

func (f *fakeTransport) Send(_ context.Context, sub Subscription, msg PushMessage) (DeliveryStatus, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sendCall{sub, msg})
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(sub)
	}
	return Delivered, nil
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
