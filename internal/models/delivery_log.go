package models

import (
	"time"
)

// DeliveryLogEntry is one delivery attempt outcome. Rows are append-only;
// the only later mutation is flipping Clicked once the user opens a
// delivered notification.
type DeliveryLogEntry struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Type      NotificationType `json:"type"`
	SentAt    time.Time        `json:"sent_at"`
	Delivered bool             `json:"delivered"`
	Clicked   bool             `json:"clicked"`
}
