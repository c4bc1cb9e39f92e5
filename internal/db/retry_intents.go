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

// CreateRetryIntent persists a new retry intent for a failed delivery.
func (d *DB) CreateRetryIntent(ctx context.Context, intent models.RetryIntent) (models.RetryIntent, error) {
	if intent.ID == "" {
		intent.ID = uuid.New().String()
	}
	if intent.MaxAttempts == 0 {
		intent.MaxAttempts = models.DefaultMaxAttempts
	}
	if intent.Status == "" {
		intent.Status = models.RetryStatusPending
	}

	query := `
        INSERT INTO notification_retries (
            id, user_id, title, body, data, type, status,
            attempt_count, max_attempts, last_attempt_at, next_retry_at, last_error, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
        RETURNING created_at`
	err := d.Pool.QueryRow(ctx, query,
		intent.ID, intent.UserID, intent.Title, intent.Body, intent.Data,
		string(intent.Type), intent.Status, intent.AttemptCount, intent.MaxAttempts,
		intent.LastAttemptAt, intent.NextRetryAt, intent.LastError,
	).Scan(&intent.CreatedAt)
	if err != nil {
		return models.RetryIntent{}, fmt.Errorf("failed to create retry intent: %w", err)
	}
	return intent, nil
}

// GetDueRetryIntents selects intents eligible for processing: pending or
// retrying, due now, and under the attempt cap. Ordered by next_retry_at so
// the oldest failures go first; limit bounds work per run.
func (d *DB) GetDueRetryIntents(ctx context.Context, now time.Time, limit int) ([]models.RetryIntent, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, user_id, title, body, data, type, status,
               attempt_count, max_attempts, last_attempt_at, next_retry_at, last_error, created_at
        FROM notification_retries
        WHERE status IN ($1, $2) AND next_retry_at <= $3 AND attempt_count < max_attempts
        ORDER BY next_retry_at
        LIMIT $4`,
		models.RetryStatusPending, models.RetryStatusRetrying, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due retry intents: %w", err)
	}
	defer rows.Close()

	var intents []models.RetryIntent
	for rows.Next() {
		var in models.RetryIntent
		var typ string
		if err := rows.Scan(
			&in.ID, &in.UserID, &in.Title, &in.Body, &in.Data, &typ, &in.Status,
			&in.AttemptCount, &in.MaxAttempts, &in.LastAttemptAt, &in.NextRetryAt,
			&in.LastError, &in.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan retry intent: %w", err)
		}
		in.Type = models.ParseNotificationType(typ)
		intents = append(intents, in)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read retry intents: %w", err)
	}
	return intents, nil
}

// MarkRetrySuccess moves an intent to its terminal success state.
func (d *DB) MarkRetrySuccess(ctx context.Context, id string, attemptedAt time.Time) error {
	result, err := d.Pool.Exec(ctx, `
        UPDATE notification_retries
        SET status = $1, last_attempt_at = $2, last_error = ''
        WHERE id = $3 AND status IN ($4, $5)`,
		models.RetryStatusSuccess, attemptedAt, id,
		models.RetryStatusPending, models.RetryStatusRetrying)
	if err != nil {
		return fmt.Errorf("failed to mark retry intent %s success: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark retry intent %s success: %w", id, ErrNotFound)
	}
	return nil
}

// MarkRetryFailure records a failed attempt. When the cap is reached the
// intent goes terminal and nextRetryAt is left untouched; otherwise it is
// rescheduled. Terminal rows are never mutated again.
func (d *DB) MarkRetryFailure(ctx context.Context, id string, attemptCount int, maxAttempts int, attemptedAt, nextRetryAt time.Time, lastError string) error {
	status := models.RetryStatusRetrying
	query := `
        UPDATE notification_retries
        SET status = $1, attempt_count = $2, last_attempt_at = $3, next_retry_at = $4, last_error = $5
        WHERE id = $6 AND status IN ($7, $8)`
	args := []interface{}{status, attemptCount, attemptedAt, nextRetryAt, lastError, id,
		models.RetryStatusPending, models.RetryStatusRetrying}

	if attemptCount >= maxAttempts {
		status = models.RetryStatusFailed
		query = `
        UPDATE notification_retries
        SET status = $1, attempt_count = $2, last_attempt_at = $3, last_error = $4
        WHERE id = $5 AND status IN ($6, $7)`
		args = []interface{}{status, attemptCount, attemptedAt, lastError, id,
			models.RetryStatusPending, models.RetryStatusRetrying}
	}

	result, err := d.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark retry intent %s failure: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark retry intent %s failure: %w", id, ErrNotFound)
	}
	return nil
}

// MarkRetryAbandoned moves an intent straight to terminal failed without
// consuming attempts, used when the user has no subscriptions left to try.
func (d *DB) MarkRetryAbandoned(ctx context.Context, id string, attemptedAt time.Time, lastError string) error {
	result, err := d.Pool.Exec(ctx, `
        UPDATE notification_retries
        SET status = $1, last_attempt_at = $2, last_error = $3
        WHERE id = $4 AND status IN ($5, $6)`,
		models.RetryStatusFailed, attemptedAt, lastError, id,
		models.RetryStatusPending, models.RetryStatusRetrying)
	if err != nil {
		return fmt.Errorf("failed to abandon retry intent %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("abandon retry intent %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetRetryIntentByID looks up one intent, mainly for operator inspection.
func (d *DB) GetRetryIntentByID(ctx context.Context, id string) (models.RetryIntent, error) {
	var in models.RetryIntent
	var typ string
	err := d.Pool.QueryRow(ctx, `
        SELECT id, user_id, title, body, data, type, status,
               attempt_count, max_attempts, last_attempt_at, next_retry_at, last_error, created_at
        FROM notification_retries
        WHERE id = $1`, id).Scan(
		&in.ID, &in.UserID, &in.Title, &in.Body, &in.Data, &typ, &in.Status,
		&in.AttemptCount, &in.MaxAttempts, &in.LastAttemptAt, &in.NextRetryAt,
		&in.LastError, &in.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RetryIntent{}, fmt.Errorf("retry intent %s: %w", id, ErrNotFound)
		}
		return models.RetryIntent{}, fmt.Errorf("failed to get retry intent %s: %w", id, err)
	}
	in.Type = models.ParseNotificationType(typ)
	return in, nil
}
