package validator

import (
	"context"
	"time"

	"push-service/internal/logging"
	"push-service/internal/models"
	"push-service/internal/registry"
)

// Store is the subscription persistence the sweep reads and prunes.
type Store interface {
	GetAllSubscriptions(ctx context.Context) ([]models.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
}

// Summary is the JSON body returned from one sweep.
type Summary struct {
	InvalidRemoved int `json:"invalid_removed"`
	StaleRemoved   int `json:"stale_removed"`
}

// Validator removes malformed and stale subscriptions. Sweeps are idempotent
// and safe to run alongside dispatch; a send racing a just-deleted row shows
// up as an ordinary delivery failure.
type Validator struct {
	store  Store
	logger *logging.Logger
	now    func() time.Time
}

func New(store Store, logger *logging.Logger) *Validator {
	return &Validator{store: store, logger: logger, now: time.Now}
}

// Sweep deletes subscriptions with non-base64url key material and
// subscriptions unused for the stale window, in one pass.
func (v *Validator) Sweep(ctx context.Context) (Summary, error) {
	subs, err := v.store.GetAllSubscriptions(ctx)
	if err != nil {
		return Summary{}, err
	}

	cutoff := v.now().Add(-models.StaleAfter)
	var sum Summary
	for _, sub := range subs {
		switch {
		case !registry.ValidKeyMaterial(sub):
			if err := v.store.DeleteSubscription(ctx, sub.ID); err != nil {
				v.logger.Errorf("Failed to delete invalid subscription %s: %v", sub.ID, err)
				continue
			}
			v.logger.Infof("Removed invalid subscription %s (user %d)", sub.ID, sub.UserID)
			sum.InvalidRemoved++

		case sub.LastUsedAt.Before(cutoff):
			if err := v.store.DeleteSubscription(ctx, sub.ID); err != nil {
				v.logger.Errorf("Failed to delete stale subscription %s: %v", sub.ID, err)
				continue
			}
			v.logger.Infof("Removed stale subscription %s (user %d, last used %s)",
				sub.ID, sub.UserID, sub.LastUsedAt.Format(time.RFC3339))
			sum.StaleRemoved++
		}
	}

	if sum.InvalidRemoved > 0 || sum.StaleRemoved > 0 {
		v.logger.Infof("Sweep removed %d invalid, %d stale subscriptions", sum.InvalidRemoved, sum.StaleRemoved)
	}
	return sum, nil
}
