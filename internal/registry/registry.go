package registry

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"push-service/internal/logging"
	"push-service/internal/models"
)

// ValidationError marks a registration rejected for malformed input. It is
// never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Store is the subset of subscription persistence the Registry needs.
type Store interface {
	CreateSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error)
	GetSubscriptionsByUserID(ctx context.Context, userID int) ([]models.Subscription, error)
	TouchSubscription(ctx context.Context, id string) error
	DeleteSubscription(ctx context.Context, id string) error
}

// Registry manages push subscription records.
type Registry struct {
	store  Store
	logger *logging.Logger
}

func New(store Store, logger *logging.Logger) *Registry {
	return &Registry{store: store, logger: logger}
}

// Register validates and stores a push registration for a user's device.
func (r *Registry) Register(ctx context.Context, userID int, endpoint, p256dh, auth string) (models.Subscription, error) {
	if strings.TrimSpace(endpoint) == "" {
		return models.Subscription{}, &ValidationError{Field: "endpoint", Reason: "must not be empty"}
	}
	if err := validateBase64URL("p256dh", p256dh); err != nil {
		return models.Subscription{}, err
	}
	if err := validateBase64URL("auth", auth); err != nil {
		return models.Subscription{}, err
	}

	sub, err := r.store.CreateSubscription(ctx, models.Subscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   p256dh,
		Auth:     auth,
	})
	if err != nil {
		return models.Subscription{}, fmt.Errorf("failed to register subscription for user %d: %w", userID, err)
	}
	r.logger.Infof("Registered subscription %s for user %d", sub.ID, userID)
	return sub, nil
}

// ListActive returns all subscriptions for a user. A user with no devices
// yields an empty slice, not an error.
func (r *Registry) ListActive(ctx context.Context, userID int) ([]models.Subscription, error) {
	return r.store.GetSubscriptionsByUserID(ctx, userID)
}

// Touch bumps a subscription's last-used timestamp after a successful send.
func (r *Registry) Touch(ctx context.Context, id string) error {
	return r.store.TouchSubscription(ctx, id)
}

// Remove hard-deletes a subscription.
func (r *Registry) Remove(ctx context.Context, id string) error {
	return r.store.DeleteSubscription(ctx, id)
}

// validateBase64URL enforces the URL-safe alphabet the push transport
// requires: no '/' or '+', and the value must decode with padding stripped.
func validateBase64URL(field, value string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if strings.ContainsAny(value, "/+") {
		return &ValidationError{Field: field, Reason: "contains non-url-safe base64 characters"}
	}
	if _, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "=")); err != nil {
		return &ValidationError{Field: field, Reason: "not valid base64url"}
	}
	return nil
}

// ValidKeyMaterial reports whether both key fields of a subscription pass
// the base64url check. The hygiene sweep uses it to find broken records.
func ValidKeyMaterial(sub models.Subscription) bool {
	return validateBase64URL("p256dh", sub.P256dh) == nil &&
		validateBase64URL("auth", sub.Auth) == nil
}
