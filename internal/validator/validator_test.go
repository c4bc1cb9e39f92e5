package validator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-service/internal/logging"
	"push-service/internal/models"
)

type fakeStore struct {
	subs map[string]models.Subscription
}

func (f *fakeStore) GetAllSubscriptions(_ context.Context) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range f.subs {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) DeleteSubscription(_ context.Context, id string) error {
	if _, ok := f.subs[id]; !ok {
		return fmt.Errorf("subscription %s not found", id)
	}
	delete(f.subs, id)
	return nil
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(t.TempDir(), "error")
	require.NoError(t, err)
	return logger
}

func sub(id, p256dh, auth string, lastUsed time.Time) models.Subscription {
	return models.Subscription{
		ID:         id,
		UserID:     1,
		Endpoint:   "https://push.example/" + id,
		P256dh:     p256dh,
		Auth:       auth,
		CreatedAt:  lastUsed,
		LastUsedAt: lastUsed,
	}
}

func TestSweepRemovesInvalidKeys(t *testing.T) {
	now := time.Now()
	store := &fakeStore{subs: map[string]models.Subscription{
		"valid":   sub("valid", "dGVzdA", "dGVzdA", now),
		"slashed": sub("slashed", "bad/key", "dGVzdA", now),
		"plussed": sub("plussed", "dGVzdA", "bad+key", now),
	}}
	v := New(store, testLogger(t))

	sum, err := v.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.InvalidRemoved)
	assert.Equal(t, 0, sum.StaleRemoved)

	_, kept := store.subs["valid"]
	assert.True(t, kept)
	assert.Len(t, store.subs, 1)
}

func TestSweepRemovesStale(t *testing.T) {
	now := time.Now()
	store := &fakeStore{subs: map[string]models.Subscription{
		"fresh":    sub("fresh", "dGVzdA", "dGVzdA", now.Add(-59*24*time.Hour)),
		"stale":    sub("stale", "dGVzdA", "dGVzdA", now.Add(-61*24*time.Hour)),
		"ancient":  sub("ancient", "dGVzdA", "dGVzdA", now.Add(-365*24*time.Hour)),
		"newlyReg": sub("newlyReg", "dGVzdA", "dGVzdA", now),
	}}
	v := New(store, testLogger(t))

	sum, err := v.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.InvalidRemoved)
	assert.Equal(t, 2, sum.StaleRemoved)

	_, kept := store.subs["fresh"]
	assert.True(t, kept)
	_, kept = store.subs["newlyReg"]
	assert.True(t, kept)
}

func TestSweepInvalidTakesPrecedenceOverStale(t *testing.T) {
	// A record can be both malformed and idle; it counts once, as invalid.
	old := time.Now().Add(-90 * 24 * time.Hour)
	store := &fakeStore{subs: map[string]models.Subscription{
		"both": sub("both", "bad/key", "dGVzdA", old),
	}}
	v := New(store, testLogger(t))

	sum, err := v.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{InvalidRemoved: 1, StaleRemoved: 0}, sum)
	assert.Empty(t, store.subs)
}

func TestSweepEmptyRegistry(t *testing.T) {
	v := New(&fakeStore{subs: map[string]models.Subscription{}}, testLogger(t))

	sum, err := v.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestSweepIdempotent(t *testing.T) {
	now := time.Now()
	store := &fakeStore{subs: map[string]models.Subscription{
		"valid":   sub("valid", "dGVzdA", "dGVzdA", now),
		"slashed": sub("slashed", "bad/key", "dGVzdA", now),
	}}
	v := New(store, testLogger(t))

	first, err := v.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.InvalidRemoved)

	second, err := v.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, second)
}
