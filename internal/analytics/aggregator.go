package analytics

import (
	"context"
	"sort"
	"time"

	"push-service/internal/logging"
	"push-service/internal/models"
)

// dailyWindow bounds the time series to the most recent days.
const dailyWindow = 14

// topTypeLimit bounds the per-type breakdown to the highest-volume types.
const topTypeLimit = 5

// LogSource reads delivery log entries for aggregation.
type LogSource interface {
	GetDeliveryLogsSince(ctx context.Context, since time.Time) ([]models.DeliveryLogEntry, error)
}

// Aggregator derives delivery and click statistics from the log. It is a
// pure read: the same log contents always produce the same snapshot.
type Aggregator struct {
	logs   LogSource
	logger *logging.Logger
}

func New(logs LogSource, logger *logging.Logger) *Aggregator {
	return &Aggregator{logs: logs, logger: logger}
}

// Aggregate builds a snapshot over entries sent at or after since. An empty
// log yields an all-zero snapshot.
func (a *Aggregator) Aggregate(ctx context.Context, since time.Time) (models.AnalyticsSnapshot, error) {
	entries, err := a.logs.GetDeliveryLogsSince(ctx, since)
	if err != nil {
		return models.AnalyticsSnapshot{}, err
	}

	snap := models.AnalyticsSnapshot{
		ByStatus: map[string]int{"delivered": 0, "failed": 0, "clicked": 0},
	}
	byType := map[models.NotificationType]int{}
	byDay := map[string]*models.DailyCount{}
	skipped := 0

	for _, e := range entries {
		if malformed(e) {
			skipped++
			continue
		}

		snap.TotalSent++
		byType[e.Type]++

		day := e.SentAt.Format("2006-01-02")
		dc, ok := byDay[day]
		if !ok {
			dc = &models.DailyCount{Date: day}
			byDay[day] = dc
		}
		dc.Sent++

		if e.Delivered {
			snap.TotalDelivered++
			snap.ByStatus["delivered"]++
			dc.Delivered++
			if e.Clicked {
				snap.TotalClicked++
				snap.ByStatus["clicked"]++
				dc.Clicked++
			}
		} else {
			snap.ByStatus["failed"]++
		}
	}
	if skipped > 0 {
		a.logger.Warnf("Aggregation skipped %d malformed delivery log rows", skipped)
	}

	snap.TotalFailed = snap.TotalSent - snap.TotalDelivered
	if snap.TotalSent > 0 {
		snap.DeliveryRate = 100 * float64(snap.TotalDelivered) / float64(snap.TotalSent)
	}
	// Click rate is a share of delivered, with a guarded denominator.
	if snap.TotalDelivered > 0 {
		snap.ClickRate = 100 * float64(snap.TotalClicked) / float64(snap.TotalDelivered)
	}

	snap.TopTypes = topTypes(byType)
	snap.Daily = recentDays(byDay)
	return snap, nil
}

// malformed filters rows aggregation cannot trust: a zero timestamp, or a
// click recorded without a delivery.
func malformed(e models.DeliveryLogEntry) bool {
	return e.SentAt.IsZero() || (e.Clicked && !e.Delivered)
}

// topTypes returns the highest-volume categories, largest first, stable by
// type name on ties.
func topTypes(counts map[models.NotificationType]int) []models.TypeCount {
	out := make([]models.TypeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, models.TypeCount{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > topTypeLimit {
		out = out[:topTypeLimit]
	}
	return out
}

// recentDays returns the daily series ascending by date, truncated to the
// most recent dailyWindow days.
func recentDays(byDay map[string]*models.DailyCount) []models.DailyCount {
	out := make([]models.DailyCount, 0, len(byDay))
	for _, dc := range byDay {
		out = append(out, *dc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if len(out) > dailyWindow {
		out = out[len(out)-dailyWindow:]
	}
	return out
}
