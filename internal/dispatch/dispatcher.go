package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"push-service/internal/logging"
	"push-service/internal/models"
	"push-service/internal/push"
)

// SubscriptionSource is the Registry surface the Dispatcher uses.
type SubscriptionSource interface {
	ListActive(ctx context.Context, userID int) ([]models.Subscription, error)
	Touch(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
}

// LogStore appends delivery attempt outcomes.
type LogStore interface {
	CreateDeliveryLog(ctx context.Context, entry models.DeliveryLogEntry) (models.DeliveryLogEntry, error)
}

// Dispatcher fans one notification out to all of a user's subscriptions.
// It records outcomes and prunes gone endpoints but makes no retry
// decisions; those belong to the scheduler.
type Dispatcher struct {
	subs   SubscriptionSource
	sender push.Sender
	logs   LogStore
	logger *logging.Logger
}

func New(subs SubscriptionSource, sender push.Sender, logs LogStore, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{subs: subs, sender: sender, logs: logs, logger: logger}
}

// Dispatch attempts delivery to every subscription of the user. Sends run
// concurrently and independently; one failure does not abort the rest. A
// user with no subscriptions yields SentCount 0 and no error.
func (d *Dispatcher) Dispatch(ctx context.Context, task models.DispatchTask) (models.DispatchResult, error) {
	subs, err := d.subs.ListActive(ctx, task.UserID)
	if err != nil {
		return models.DispatchResult{}, err
	}
	if len(subs) == 0 {
		d.logger.Debugf("Dispatch for user %d: no subscriptions", task.UserID)
		return models.DispatchResult{}, nil
	}

	payload := push.Payload{
		Title: task.Title,
		Body:  task.Body,
		Data:  task.Data,
		Type:  string(task.Type),
	}

	var (
		mu     sync.Mutex
		result models.DispatchResult
		wg     sync.WaitGroup
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub models.Subscription) {
			defer wg.Done()
			ok := d.sendOne(ctx, task, sub, payload)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				result.SentCount++
			} else {
				result.FailedSubscriptionIDs = append(result.FailedSubscriptionIDs, sub.ID)
			}
		}(sub)
	}
	wg.Wait()

	d.logger.Infof("Dispatched %q to user %d: %d sent, %d failed",
		task.Title, task.UserID, result.SentCount, len(result.FailedSubscriptionIDs))
	return result, nil
}

// sendOne performs a single send attempt and writes its delivery log entry.
func (d *Dispatcher) sendOne(ctx context.Context, task models.DispatchTask, sub models.Subscription, payload push.Payload) bool {
	err := d.sender.Send(ctx, sub, payload)

	entry := models.DeliveryLogEntry{
		Title:     task.Title,
		Type:      task.Type,
		SentAt:    time.Now(),
		Delivered: err == nil,
	}
	if _, logErr := d.logs.CreateDeliveryLog(ctx, entry); logErr != nil {
		d.logger.Errorf("Failed to write delivery log for subscription %s: %v", sub.ID, logErr)
	}

	if err == nil {
		if touchErr := d.subs.Touch(ctx, sub.ID); touchErr != nil {
			// The sweep may have deleted the row between send and touch.
			d.logger.Warnf("Failed to touch subscription %s: %v", sub.ID, touchErr)
		}
		return true
	}

	if errors.Is(err, push.ErrEndpointGone) {
		d.logger.Infof("Removing gone subscription %s for user %d", sub.ID, task.UserID)
		if rmErr := d.subs.Remove(ctx, sub.ID); rmErr != nil {
			d.logger.Warnf("Failed to remove gone subscription %s: %v", sub.ID, rmErr)
		}
	}
	d.logger.Errorf("Push to subscription %s failed: %v", sub.ID, err)
	return false
}
