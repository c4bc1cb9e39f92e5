package models

import (
	"time"
)

// Subscription is one registered push endpoint for a user's device or browser.
type Subscription struct {
	ID         string    `json:"id"`
	UserID     int       `json:"user_id"`
	Endpoint   string    `json:"endpoint"`
	P256dh     string    `json:"p256dh"`
	Auth       string    `json:"auth"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// StaleAfter is how long a subscription may go unused before the sweep
// removes it.
const StaleAfter = 60 * 24 * time.Hour
