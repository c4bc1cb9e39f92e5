package models

import (
	"time"
)

// Retry intent statuses. pending and retrying are both eligible for
// processing; success and failed are terminal.
const (
	RetryStatusPending  = "pending"
	RetryStatusRetrying = "retrying"
	RetryStatusSuccess  = "success"
	RetryStatusFailed   = "failed"
)

// DefaultMaxAttempts is the attempt cap applied to new retry intents.
const DefaultMaxAttempts = 3

// RetryIntent records a failed delivery awaiting scheduled retries.
type RetryIntent struct {
	ID            string            `json:"id"`
	UserID        int               `json:"user_id"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Data          map[string]string `json:"data,omitempty"`
	Type          NotificationType  `json:"type"`
	Status        string            `json:"status"`
	AttemptCount  int               `json:"attempt_count"`
	MaxAttempts   int               `json:"max_attempts"`
	LastAttemptAt *time.Time        `json:"last_attempt_at,omitempty"`
	NextRetryAt   time.Time         `json:"next_retry_at"`
	LastError     string            `json:"last_error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Terminal reports whether the intent has reached a final state.
func (r RetryIntent) Terminal() bool {
	return r.Status == RetryStatusSuccess || r.Status == RetryStatusFailed
}
