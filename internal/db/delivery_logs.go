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

// CreateDeliveryLog appends one delivery attempt outcome. The table is
// append-only; the single later mutation happens in MarkDeliveryLogClicked.
func (d *DB) CreateDeliveryLog(ctx context.Context, entry models.DeliveryLogEntry) (models.DeliveryLogEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	_, err := d.Pool.Exec(ctx, `
        INSERT INTO delivery_logs (id, title, type, sent_at, delivered, clicked)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.Title, string(entry.Type), entry.SentAt, entry.Delivered, entry.Clicked)
	if err != nil {
		return models.DeliveryLogEntry{}, fmt.Errorf("failed to create delivery log: %w", err)
	}
	return entry, nil
}

// MarkDeliveryLogClicked flips clicked on a delivered entry. Undelivered
// entries are left alone so clicked never leads delivered.
func (d *DB) MarkDeliveryLogClicked(ctx context.Context, id string) error {
	result, err := d.Pool.Exec(ctx, `
        UPDATE delivery_logs SET clicked = TRUE WHERE id = $1 AND delivered = TRUE`, id)
	if err != nil {
		return fmt.Errorf("failed to mark delivery log %s clicked: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("mark delivery log %s clicked: %w", id, ErrNotFound)
	}
	return nil
}

// GetDeliveryLogsSince returns entries sent at or after the given time,
// oldest first, for aggregation.
func (d *DB) GetDeliveryLogsSince(ctx context.Context, since time.Time) ([]models.DeliveryLogEntry, error) {
	rows, err := d.Pool.Query(ctx, `
        SELECT id, title, type, sent_at, delivered, clicked
        FROM delivery_logs
        WHERE sent_at >= $1
        ORDER BY sent_at`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery logs since %s: %w", since, err)
	}
	defer rows.Close()

	var entries []models.DeliveryLogEntry
	for rows.Next() {
		var e models.DeliveryLogEntry
		var typ string
		if err := rows.Scan(&e.ID, &e.Title, &typ, &e.SentAt, &e.Delivered, &e.Clicked); err != nil {
			return nil, fmt.Errorf("failed to scan delivery log: %w", err)
		}
		e.Type = models.ParseNotificationType(typ)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read delivery logs: %w", err)
	}
	return entries, nil
}
