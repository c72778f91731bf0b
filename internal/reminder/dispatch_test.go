package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testDueDose() DueDose {
	tr := testTreatment()
	return DueDose{
		Treatment:    tr,
		Medication:   tr.Medications[0],
		DoseIndex:    1,
		DoseAt:       now.Add(2 * time.Minute),
		ConsumerID:   "patient-1",
		ConsumerName: "Ana",
	}
}

func allChannels(userID string) Preferences {
	return Preferences{UserID: userID, Push: true, Email: true, Browser: true, Sound: true}
}

func newDispatcher(n *memNotifications, s *memSubscriptions, tr *fakeTransport) *Dispatcher {
	return &Dispatcher{Notifications: n, Subscriptions: s, Transport: tr, Logger: testLogger()}
}

func TestDispatchDoseIdempotent(t *testing.T) {
	notifs := newMemNotifications()
	subs := newMemSubscriptions(Subscription{ID: "sub-1", UserID: "user-1", Endpoint: "https://push/a"})
	transport := &fakeTransport{}
	d := newDispatcher(notifs, subs, transport)
	due := testDueDose()

	first, err := d.DispatchDose(context.Background(), due, allChannels("user-1"))
	if err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
	if first.Sent != 4 {
		t.Errorf("first dispatch sent %d, want 4 (one per channel)", first.Sent)
	}

	second, err := d.DispatchDose(context.Background(), due, allChannels("user-1"))
	if err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if second.Sent != 0 {
		t.Errorf("second dispatch sent %d, want 0", second.Sent)
	}

	if got := notifs.count(); got != 4 {
		t.Errorf("notification rows = %d, want 4", got)
	}
	if got := transport.sendCount(); got != 1 {
		t.Errorf("transport sends = %d, want exactly 1", got)
	}
}

func TestDispatchLeadOffsets(t *testing.T) {
	notifs := newMemNotifications()
	subs := newMemSubscriptions(Subscription{ID: "sub-1", UserID: "user-1"})
	d := newDispatcher(notifs, subs, &fakeTransport{})
	due := testDueDose()

	if _, err := d.DispatchDose(context.Background(), due, allChannels("user-1")); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	// Every channel is detected in the same 5-minute window; the lead
	// offset only shifts the recorded scheduled_for.
	want := map[Channel]time.Duration{
		ChannelPush:    30 * time.Minute,
		ChannelEmail:   60 * time.Minute,
		ChannelBrowser: 15 * time.Minute,
		ChannelSound:   5 * time.Minute,
	}
	for ch, lead := range want {
		n, ok := notifs.get("tm-1", 1, ch)
		if !ok {
			t.Fatalf("no %s notification recorded", ch)
		}
		if got := due.DoseAt.Sub(n.ScheduledFor); got != lead {
			t.Errorf("%s scheduled_for lead = %v, want %v", ch, got, lead)
		}
	}
}

func TestDispatchRespectsDisabledChannels(t *testing.T) {
	notifs := newMemNotifications()
	d := newDispatcher(notifs, newMemSubscriptions(), &fakeTransport{})
	prefs := Preferences{UserID: "user-1", Browser: true}

	res, err := d.DispatchDose(context.Background(), testDueDose(), prefs)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Sent != 1 || notifs.count() != 1 {
		t.Errorf("sent=%d rows=%d, want 1/1 (browser only)", res.Sent, notifs.count())
	}
	if _, ok := notifs.get("tm-1", 1, ChannelBrowser); !ok {
		t.Error("browser notification missing")
	}
}

func TestStaleSubscriptionPruned(t *testing.T) {
	notifs := newMemNotifications()
	subs := newMemSubscriptions(
		Subscription{ID: "sub-dead", UserID: "user-1", Endpoint: "https://push/dead"},
		Subscription{ID: "sub-live", UserID: "user-1", Endpoint: "https://push/live"},
	)
	transport := &fakeTransport{respond: func(sub Subscription) (DeliveryStatus, error) {
		if sub.ID == "sub-dead" {
			return SubscriptionGone, errors.New("410 Gone")
		}
		return Delivered, nil
	}}
	d := newDispatcher(notifs, subs, transport)
	prefs := Preferences{UserID: "user-1", Push: true}

	res, err := d.DispatchDose(context.Background(), testDueDose(), prefs)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Pruned != 1 {
		t.Errorf("pruned = %d, want 1", res.Pruned)
	}
	if len(subs.deleted) != 1 || subs.deleted[0] != "sub-dead" {
		t.Errorf("deleted = %v, want [sub-dead]", subs.deleted)
	}
	// Delivery to the live endpoint still succeeded.
	if n, ok := notifs.get("tm-1", 1, ChannelPush); !ok || !n.Sent {
		t.Error("push notification not marked sent despite a live delivery")
	}
	// The dead endpoint gets no further attempts.
	transport.calls = nil
	if _, err := d.DispatchDose(context.Background(), testDueDose(), prefs); err != nil {
		t.Fatalf("second dispatch: %v", err)
	}
	if got := transport.sendCount(); got != 0 {
		t.Errorf("sends after prune = %d, want 0", got)
	}
}

func TestTransientFailureRetriedNextTick(t *testing.T) {
	notifs := newMemNotifications()
	subs := newMemSubscriptions(Subscription{ID: "sub-1", UserID: "user-1"})
	flaky := true
	transport := &fakeTransport{respond: func(Subscription) (DeliveryStatus, error) {
		if flaky {
			return TransientFailure, errors.New("503 from push service")
		}
		return Delivered, nil
	}}
	d := newDispatcher(notifs, subs, transport)
	prefs := Preferences{UserID: "user-1", Push: true}

	res, err := d.DispatchDose(context.Background(), testDueDose(), prefs)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Sent != 0 {
		t.Errorf("sent = %d on transient failure, want 0", res.Sent)
	}
	if n, ok := notifs.get("tm-1", 1, ChannelPush); !ok || n.Sent {
		t.Fatalf("want an unsent push record after transient failure, got ok=%v sent=%v", ok, n.Sent)
	}

	// Next tick inside the window: same dose, transport recovered.
	flaky = false
	res, err = d.DispatchDose(context.Background(), testDueDose(), prefs)
	if err != nil {
		t.Fatalf("retry dispatch: %v", err)
	}
	if res.Sent != 1 {
		t.Errorf("retry sent = %d, want 1", res.Sent)
	}
	if n, _ := notifs.get("tm-1", 1, ChannelPush); !n.Sent {
		t.Error("push record not marked sent after retry")
	}
	if got := notifs.count(); got != 1 {
		t.Errorf("rows = %d, want 1 (no duplicate on retry)", got)
	}
}

func TestDoseMessageContents(t *testing.T) {
	msg := doseMessage(testDueDose())
	for _, want := range []string{"Ana", "Ibuprofen 400mg", "1 tablet"} {
		if !strings.Contains(msg.Body, want) {
			t.Errorf("body %q missing %q", msg.Body, want)
		}
	}
	if msg.URL != "/treatments/tr-1" {
		t.Errorf("deep link = %q", msg.URL)
	}
	if msg.Icon == "" || msg.Badge == "" {
		t.Error("icon/badge asset references missing")
	}
}

func TestDispatchExpiration(t *testing.T) {
	prefs := DefaultPreferences("user-1") // 7 days before expiration
	cases := []struct {
		name    string
		expires time.Time
		want    int
	}{
		{"already expired", now.Add(-48 * time.Hour), 1},
		{"expires within threshold", now.Add(3 * 24 * time.Hour), 1},
		{"expires beyond threshold", now.Add(30 * 24 * time.Hour), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subs := newMemSubscriptions(Subscription{ID: "s", UserID: "user-1"})
			transport := &fakeTransport{}
			d := newDispatcher(newMemNotifications(), subs, transport)
			med := Medication{ID: "med-1", UserID: "user-1", Name: "Amoxicillin", ExpirationDate: tc.expires, Quantity: 10}

			res, err := d.DispatchExpiration(context.Background(), med, prefs, now)
			if err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if res.Sent != tc.want {
				t.Errorf("sent = %d, want %d", res.Sent, tc.want)
			}
		})
	}
}

func TestDispatchLowStock(t *testing.T) {
	prefs := DefaultPreferences("user-1") // threshold 5
	cases := []struct {
		name     string
		quantity float64
		want     int
	}{
		{"at threshold", 5, 1},
		{"below threshold", 2, 1},
		{"exhausted", 0, 0},
		{"plenty left", 12, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			subs := newMemSubscriptions(Subscription{ID: "s", UserID: "user-1"})
			d := newDispatcher(newMemNotifications(), subs, &fakeTransport{})
			med := Medication{ID: "med-1", UserID: "user-1", Name: "Paracetamol", Quantity: tc.quantity}

			res, err := d.DispatchLowStock(context.Background(), med, prefs)
			if err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			if res.Sent != tc.want {
				t.Errorf("sent = %d, want %d", res.Sent, tc.want)
			}
		})
	}
}
