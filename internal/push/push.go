package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/pawprint/go-reminder-service/internal/metrics"
	"github.com/pawprint/go-reminder-service/internal/osnotify"
	"github.com/pawprint/go-reminder-service/internal/shared/logger"
)

// payload is the JSON sent to the push service
type payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Service sends fired reminders to the owner's devices over web push. It is
// the Deliverer behind the cron scheduler.
type Service struct {
	store      *Store
	publicKey  string
	privateKey string
	subscriber string
	log        *logger.Logger
}

// NewService creates a push service with VAPID keys
func NewService(store *Store, publicKey, privateKey, subscriber string, log *logger.Logger) *Service {
	return &Service{
		store:      store,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		log:        log,
	}
}

// VAPIDPublicKey returns the public key clients subscribe with
func (s *Service) VAPIDPublicKey() string {
	return s.publicKey
}

// Deliver sends the notification to every device the owner has registered.
// Expired subscriptions (410 Gone) are dropped; other per-device failures
// are logged and do not stop delivery to the remaining devices.
func (s *Service) Deliver(ctx context.Context, ownerID string, content osnotify.Content) error {
	subs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}
	if len(subs) == 0 {
		s.log.Debug("No push subscriptions for owner", "owner_id", ownerID)
		return nil
	}

	data, err := json.Marshal(payload{Title: content.Title, Body: content.Body, Data: content.Data})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	for _, sub := range subs {
		if err := s.send(data, sub); err != nil {
			if err == errExpired {
				metrics.PushDeliveries.WithLabelValues("expired").Inc()
				if delErr := s.store.Delete(ctx, ownerID, sub.Endpoint); delErr != nil {
					s.log.Warn("Failed to drop expired subscription", "error", delErr, "owner_id", ownerID)
				}
				continue
			}
			metrics.PushDeliveries.WithLabelValues("failed").Inc()
			s.log.Error("Failed to deliver push", "error", err, "owner_id", ownerID, "device", sub.DeviceName)
			continue
		}
		metrics.PushDeliveries.WithLabelValues("sent").Inc()
	}
	return nil
}

var errExpired = fmt.Errorf("push subscription expired")

func (s *Service) send(data []byte, sub Subscription) error {
	resp, err := webpush.SendNotification(data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  s.publicKey,
		VAPIDPrivateKey: s.privateKey,
		Subscriber:      s.subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		return errExpired
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}
