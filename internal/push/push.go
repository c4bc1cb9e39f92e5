package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"push-service/internal/config"
	"push-service/internal/models"
)

// ErrEndpointGone marks a push service response saying the endpoint no
// longer exists (404/410). The subscription is unrecoverable and should be
// removed rather than retried.
var ErrEndpointGone = errors.New("push endpoint gone")

// Payload is the JSON body shown to the service worker on the device.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Type  string            `json:"type"`
}

// Sender delivers one payload to one subscription.
type Sender interface {
	Send(ctx context.Context, sub models.Subscription, payload Payload) error
}

// WebPushSender sends via the Web Push protocol with VAPID authentication.
type WebPushSender struct {
	cfg     config.Config
	limiter *rate.Limiter
}

func NewWebPushSender(cfg config.Config) *WebPushSender {
	return &WebPushSender{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.Push.RatePerSecond)), cfg.Push.RatePerSecond),
	}
}

// Send encrypts and posts the payload to the subscription's endpoint. The
// attempt is bounded by the configured send timeout so one slow push service
// cannot stall a batch.
func (s *WebPushSender) Send(ctx context.Context, sub models.Subscription, payload Payload) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("push rate limit: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Push.SendTimeout)
	defer cancel()

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Push.Subscriber,
		VAPIDPublicKey:  s.cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.Push.VAPIDPrivateKey,
		TTL:             s.cfg.Push.TTL,
	})
	if err != nil {
		return fmt.Errorf("failed to send push to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("push to %s: %w", sub.Endpoint, ErrEndpointGone)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push to %s returned status %d: %s", sub.Endpoint, resp.StatusCode, detail)
	}
}
