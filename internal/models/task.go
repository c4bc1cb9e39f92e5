package models

import "time"

// DispatchTask is one queued request to deliver a notification to all of a
// user's subscriptions.
type DispatchTask struct {
	RequestID string
	UserID    int
	Title     string
	Body      string
	Data      map[string]string
	Type      NotificationType
	Timestamp time.Time
}

// DispatchResult summarizes one dispatch fan-out.
type DispatchResult struct {
	SentCount             int      `json:"sent"`
	FailedSubscriptionIDs []string `json:"failed_subscription_ids,omitempty"`
}

// Failed reports whether any subscription send failed.
func (r DispatchResult) Failed() bool {
	return len(r.FailedSubscriptionIDs) > 0
}
