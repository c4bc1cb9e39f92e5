package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"push-service/internal/models"
)

// CreateSubscription inserts a subscription, or refreshes the keys and
// last_used_at when the same endpoint is registered again for the same user.
func (d *DB) CreateSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}

	query := `
        INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at, last_used_at)
        VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
        ON CONFLICT (user_id, endpoint) DO UPDATE
            SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, last_used_at = NOW()
        RETURNING id, created_at, last_used_at`
	err := d.Pool.QueryRow(ctx, query,
		sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth,
	).Scan(&sub.ID, &sub.CreatedAt, &sub.LastUsedAt)
	if err != nil {
		return models.Subscription{}, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

// GetSubscriptionsByUserID returns all subscriptions registered for a user.
func (d *DB) GetSubscriptionsByUserID(ctx context.Context, userID int) ([]models.Subscription, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, user_id, endpoint, p256dh, auth, created_at, last_used_at
        FROM push_subscriptions
        WHERE user_id = $1
        ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions for user_id %d: %w", userID, err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// GetAllSubscriptions returns every subscription, for the hygiene sweep.
func (d *DB) GetAllSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, user_id, endpoint, p256dh, auth, created_at, last_used_at
        FROM push_subscriptions
        ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// TouchSubscription bumps last_used_at after a successful delivery.
func (d *DB) TouchSubscription(ctx context.Context, id string) error {
	result, err := d.Pool.Exec(ctx, `
        UPDATE push_subscriptions SET last_used_at = $1 WHERE id = $2`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to touch subscription %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("touch subscription %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteSubscription hard-deletes a subscription by id.
func (d *DB) DeleteSubscription(ctx context.Context, id string) error {
	result, err := d.Pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete subscription %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanSubscriptions(rows pgx.Rows) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dh, &s.Auth, &s.CreatedAt, &s.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read subscriptions: %w", err)
	}
	return subs, nil
}
