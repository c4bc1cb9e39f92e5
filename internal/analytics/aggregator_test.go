package analytics

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

type fakeLogs struct {
	entries []models.DeliveryLogEntry
}

func (f *fakeLogs) GetDeliveryLogsSince(_ context.Context, since time.Time) ([]models.DeliveryLogEntry, error) {
	var out []models.DeliveryLogEntry
	for _, e := range f.entries {
		if !e.SentAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(t.TempDir(), "error")
	require.NoError(t, err)
	return logger
}

func entry(typ models.NotificationType, sentAt time.Time, delivered, clicked bool) models.DeliveryLogEntry {
	return models.DeliveryLogEntry{
		ID:        fmt.Sprintf("e-%d", sentAt.UnixNano()),
		Title:     "t",
		Type:      typ,
		SentAt:    sentAt,
		Delivered: delivered,
		Clicked:   clicked,
	}
}

func TestAggregateRates(t *testing.T) {
	// 100 entries: 80 delivered, 20 of those clicked.
	now := time.Now()
	logs := &fakeLogs{}
	for i := 0; i < 100; i++ {
		delivered := i < 80
		clicked := i < 20
		logs.entries = append(logs.entries, entry(models.TypeSystem, now.Add(time.Duration(i)*time.Second), delivered, delivered && clicked))
	}
	a := New(logs, testLogger(t))

	snap, err := a.Aggregate(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 100, snap.TotalSent)
	assert.Equal(t, 80, snap.TotalDelivered)
	assert.Equal(t, 20, snap.TotalClicked)
	assert.Equal(t, 20, snap.TotalFailed)
	assert.InDelta(t, 80.0, snap.DeliveryRate, 0.001)
	// click rate is a share of delivered, not of sent: 20/80
	assert.InDelta(t, 25.0, snap.ClickRate, 0.001)
}

func TestAggregateEmpty(t *testing.T) {
	a := New(&fakeLogs{}, testLogger(t))

	snap, err := a.Aggregate(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalSent)
	assert.Equal(t, 0.0, snap.DeliveryRate)
	assert.Equal(t, 0.0, snap.ClickRate)
	assert.Empty(t, snap.TopTypes)
	assert.Empty(t, snap.Daily)
}

func TestAggregateClickRateGuard(t *testing.T) {
	// Nothing delivered: click rate must be zero, never a division by zero.
	now := time.Now()
	logs := &fakeLogs{entries: []models.DeliveryLogEntry{
		entry(models.TypeSystem, now, false, false),
		entry(models.TypeSystem, now, false, false),
	}}
	a := New(logs, testLogger(t))

	snap, err := a.Aggregate(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, snap.TotalDelivered)
	assert.Equal(t, 0.0, snap.ClickRate)
}

func TestAggregateSkipsMalformedRows(t *testing.T) {
	now := time.Now()
	logs := &fakeLogs{entries: []models.DeliveryLogEntry{
		entry(models.TypeSystem, now, true, false),
		{ID: "zero-ts", Type: models.TypeSystem, Delivered: true},      // zero sent_at
		entry(models.TypeSystem, now, false, true),                     // clicked without delivered
	}}
	// The zero-timestamp row slips past the since filter boundary only if
	// since is itself zero.
	a := New(logs, testLogger(t))

	snap, err := a.Aggregate(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalSent)
	assert.Equal(t, 1, snap.TotalDelivered)
	assert.Equal(t, 0, snap.TotalClicked)
}

func TestAggregateTopTypes(t *testing.T) {
	now := time.Now()
	logs := &fakeLogs{}
	counts := map[models.NotificationType]int{
		models.TypeSubmissionApproved: 10,
		models.TypeSubmissionRejected: 8,
		models.TypeCampaignInvite:     6,
		models.TypePayoutSent:         4,
		models.TypeSystem:             2,
		models.TypeOther:              1,
	}
	for typ, n := range counts {
		for i := 0; i < n; i++ {
			logs.entries = append(logs.entries, entry(typ, now, true, false))
		}
	}
	a := New(logs, testLogger(t))

	snap, err := a.Aggregate(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)

	// Six categories present, only the top five reported.
	require.Len(t, snap.TopTypes, 5)
	assert.Equal(t, models.TypeSubmissionApproved, snap.TopTypes[0].Type)
	assert.Equal(t, 10, snap.TopTypes[0].Count)
	assert.Equal(t, models.TypeSystem, snap.TopTypes[4].Type)
	for i := 1; i < len(snap.TopTypes); i++ {
		assert.GreaterOrEqual(t, snap.TopTypes[i-1].Count, snap.TopTypes[i].Count)
	}
}

func TestAggregateDailySeriesTruncated(t *testing.T) {
	// 20 days of one entry each: only the most recent 14 survive, ascending.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	logs := &fakeLogs{}
	for day := 0; day < 20; day++ {
		logs.entries = append(logs.entries, entry(models.TypeSystem, base.AddDate(0, 0, day), true, false))
	}
	a := New(logs, testLogger(t))

	snap, err := a.Aggregate(context.Background(), base.Add(-time.Hour))
	require.NoError(t, err)

	require.Len(t, snap.Daily, 14)
	assert.Equal(t, "2026-08-07", snap.Daily[0].Date)
	assert.Equal(t, "2026-08-20", snap.Daily[13].Date)
	for i := 1; i < len(snap.Daily); i++ {
		assert.Less(t, snap.Daily[i-1].Date, snap.Daily[i].Date)
	}
}

func TestAggregateStatusBreakdown(t *testing.T) {
	now := time.Now()
	logs := &fakeLogs{entries: []models.DeliveryLogEntry{
		entry(models.TypeSystem, now, true, true),
		entry(models.TypeSystem, now, true, false),
		entry(models.TypeSystem, now, false, false),
	}}
	a := New(logs, testLogger(t))

	snap, err := a.Aggregate(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ByStatus["delivered"])
	assert.Equal(t, 1, snap.ByStatus["failed"])
	assert.Equal(t, 1, snap.ByStatus["clicked"])
}
