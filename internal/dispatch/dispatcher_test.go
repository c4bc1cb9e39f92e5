package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-service/internal/logging"
	"push-service/internal/models"
	"push-service/internal/push"
)

type fakeSubs struct {
	mu      sync.Mutex
	subs    []models.Subscription
	touched []string
	removed []string
}

func (f *fakeSubs) ListActive(_ context.Context, userID int) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) Touch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	return nil
}

func (f *fakeSubs) Remove(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

// fakeSender fails sends to endpoints listed in failures.
type fakeSender struct {
	mu       sync.Mutex
	failures map[string]error
	sent     []string
}

func (f *fakeSender) Send(_ context.Context, sub models.Subscription, _ push.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[sub.Endpoint]; ok {
		return err
	}
	f.sent = append(f.sent, sub.Endpoint)
	return nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries []models.DeliveryLogEntry
}

func (f *fakeLogs) CreateDeliveryLog(_ context.Context, entry models.DeliveryLogEntry) (models.DeliveryLogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = fmt.Sprintf("log-%d", len(f.entries)+1)
	f.entries = append(f.entries, entry)
	return entry, nil
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(t.TempDir(), "error")
	require.NoError(t, err)
	return logger
}

func testTask(userID int) models.DispatchTask {
	return models.DispatchTask{
		RequestID: "req-1",
		UserID:    userID,
		Title:     "Submission approved",
		Body:      "Your campaign submission was approved.",
		Type:      models.TypeSubmissionApproved,
		Timestamp: time.Now(),
	}
}

func TestDispatchNoSubscriptions(t *testing.T) {
	d := New(&fakeSubs{}, &fakeSender{}, &fakeLogs{}, testLogger(t))

	result, err := d.Dispatch(context.Background(), testTask(1))
	require.NoError(t, err)
	assert.Equal(t, 0, result.SentCount)
	assert.Empty(t, result.FailedSubscriptionIDs)
	assert.False(t, result.Failed())
}

func TestDispatchPartialFailure(t *testing.T) {
	subs := &fakeSubs{subs: []models.Subscription{
		{ID: "sub-ok", UserID: 1, Endpoint: "https://push.example/ok"},
		{ID: "sub-bad", UserID: 1, Endpoint: "https://push.example/bad"},
	}}
	sender := &fakeSender{failures: map[string]error{
		"https://push.example/bad": errors.New("network timeout"),
	}}
	logs := &fakeLogs{}
	d := New(subs, sender, logs, testLogger(t))

	result, err := d.Dispatch(context.Background(), testTask(1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, []string{"sub-bad"}, result.FailedSubscriptionIDs)

	// One delivered entry, one failed entry.
	require.Len(t, logs.entries, 2)
	var delivered, failed int
	for _, e := range logs.entries {
		if e.Delivered {
			delivered++
		} else {
			failed++
		}
		assert.Equal(t, models.TypeSubmissionApproved, e.Type)
		assert.False(t, e.SentAt.IsZero())
	}
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, failed)

	// Only the successful subscription is touched; nothing is removed.
	assert.Equal(t, []string{"sub-ok"}, subs.touched)
	assert.Empty(t, subs.removed)
}

func TestDispatchAllSucceed(t *testing.T) {
	subs := &fakeSubs{subs: []models.Subscription{
		{ID: "a", UserID: 3, Endpoint: "https://push.example/a"},
		{ID: "b", UserID: 3, Endpoint: "https://push.example/b"},
		{ID: "c", UserID: 3, Endpoint: "https://push.example/c"},
	}}
	logs := &fakeLogs{}
	d := New(subs, &fakeSender{}, logs, testLogger(t))

	result, err := d.Dispatch(context.Background(), testTask(3))
	require.NoError(t, err)
	assert.Equal(t, 3, result.SentCount)
	assert.Empty(t, result.FailedSubscriptionIDs)
	assert.Len(t, logs.entries, 3)
	assert.Len(t, subs.touched, 3)
}

func TestDispatchRemovesGoneEndpoint(t *testing.T) {
	subs := &fakeSubs{subs: []models.Subscription{
		{ID: "gone", UserID: 2, Endpoint: "https://push.example/gone"},
	}}
	sender := &fakeSender{failures: map[string]error{
		"https://push.example/gone": fmt.Errorf("status 410: %w", push.ErrEndpointGone),
	}}
	logs := &fakeLogs{}
	d := New(subs, sender, logs, testLogger(t))

	result, err := d.Dispatch(context.Background(), testTask(2))
	require.NoError(t, err)
	assert.Equal(t, 0, result.SentCount)
	assert.Equal(t, []string{"gone"}, result.FailedSubscriptionIDs)
	assert.Equal(t, []string{"gone"}, subs.removed)

	// The failed attempt is still logged.
	require.Len(t, logs.entries, 1)
	assert.False(t, logs.entries[0].Delivered)
}

func TestDispatchIgnoresOtherUsersSubscriptions(t *testing.T) {
	subs := &fakeSubs{subs: []models.Subscription{
		{ID: "mine", UserID: 1, Endpoint: "https://push.example/mine"},
		{ID: "theirs", UserID: 2, Endpoint: "https://push.example/theirs"},
	}}
	sender := &fakeSender{}
	d := New(subs, sender, &fakeLogs{}, testLogger(t))

	result, err := d.Dispatch(context.Background(), testTask(1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, []string{"https://push.example/mine"}, sender.sent)
}
