// Package push delivers Web Push notifications with VAPID authentication.
// It adapts the reminder.PushTransport port onto the Web Push protocol and
// classifies responses into the scheduler's delivery statuses.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

const (
	sendTimeout = 10 * time.Second
	// messageTTL is how long the push service may hold an undelivered
	// message. Dose reminders are only useful near the dose time.
	messageTTL = 300
)

// Sender sends Web Push messages. Nil-safe: when not configured (missing
// VAPID keys), all sends report transient failure so nothing is marked sent.
type Sender struct {
	subscriber      string
	vapidPublicKey  string
	vapidPrivateKey string
	client          *http.Client
}

// NewSender creates a sender from a VAPID key pair. The subscriber is the
// contact address sent to push services, per the VAPID spec. Returns nil
// when either key is empty (push disabled).
func NewSender(subscriber, vapidPublicKey, vapidPrivateKey string) *Sender {
	if vapidPublicKey == "" || vapidPrivateKey == "" {
		return nil
	}
	return &Sender{
		subscriber:      subscriber,
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		client:          &http.Client{Timeout: sendTimeout},
	}
}

// PublicKey returns the VAPID public key the browser needs to subscribe.
func (s *Sender) PublicKey() string {
	if s == nil {
		return ""
	}
	return s.vapidPublicKey
}

// Send delivers one message to one subscription endpoint.
func (s *Sender) Send(ctx context.Context, sub reminder.Subscription, msg reminder.PushMessage) (reminder.DeliveryStatus, error) {
	if s == nil {
		return reminder.TransientFailure, fmt.Errorf("push sender not configured")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return reminder.TransientFailure, fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
		TTL:             messageTTL,
		HTTPClient:      s.client,
	})
	if err != nil {
		return reminder.TransientFailure, fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	return classify(resp.StatusCode)
}

// classify maps push-service HTTP status codes onto delivery statuses. The
// Web Push contract requires subscription cleanup on 410 Gone; 404 means
// the same thing from some services.
func classify(status int) (reminder.DeliveryStatus, error) {
	switch {
	case status >= 200 && status < 300:
		return reminder.Delivered, nil
	case status == http.StatusNotFound || status == http.StatusGone:
		return reminder.SubscriptionGone, fmt.Errorf("push service returned %d", status)
	default:
		return reminder.TransientFailure, fmt.Errorf("push service returned %d", status)
	}
}

// GenerateVAPIDKeys creates a new VAPID key pair for deployment setup.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}
