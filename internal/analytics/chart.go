package analytics

import (
	"sort"
	"time"

	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/store"
)

const hourlyGranularityThreshold = 3 * 24 * time.Hour

// pickGranularity chooses hourly buckets for short windows (under three
// days) and daily buckets for longer ones, so a chart never has so few or so
// many points that it stops being readable.
func pickGranularity(start, end time.Time) string {
	if end.Sub(start) < hourlyGranularityThreshold {
		return "hourly"
	}
	return "daily"
}

func bucketLabel(t time.Time, granularity string) string {
	if granularity == "hourly" {
		return t.UTC().Format("2006-01-02T15")
	}
	return t.UTC().Format("2006-01-02")
}

func bucketTooltip(t time.Time, granularity string) string {
	if granularity == "hourly" {
		return t.Format("01/02 15:04")
	}
	return t.Format("Jan 2")
}

func bucketStep(granularity string) time.Duration {
	if granularity == "hourly" {
		return time.Hour
	}
	return 24 * time.Hour
}

// buildChartData converts SQL-pushdown chart buckets into a gap-filled
// series spanning [start, min(end, now)), so a bucket with zero traffic
// still appears as a zero point rather than a visible hole in the chart.
func buildChartData(buckets []store.ChartBucket, start, end, now time.Time) domain.ChartData {
	granularity := pickGranularity(start, end)
	step := bucketStep(granularity)

	byLabel := make(map[string]store.ChartBucket, len(buckets))
	for _, b := range buckets {
		byLabel[bucketLabel(b.BucketStart, granularity)] = b
	}

	limit := end
	if now.Before(limit) {
		limit = now
	}

	var points []domain.ChartPoint
	for t := truncateTo(start, granularity); t.Before(limit); t = t.Add(step) {
		label := bucketLabel(t, granularity)
		point := domain.ChartPoint{Label: label, Tooltip: bucketTooltip(t, granularity)}
		if b, ok := byLabel[label]; ok {
			point.SessionCount = b.SessionCount
			point.HitCount = b.HitCount
		}
		points = append(points, point)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Label < points[j].Label })

	return domain.ChartData{Granularity: granularityWire(granularity), Points: points}
}

func granularityWire(g string) string {
	if g == "hourly" {
		return "hourly"
	}
	return "daily"
}

func truncateTo(t time.Time, granularity string) time.Time {
	t = t.UTC()
	if granularity == "hourly" {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// buildChartDataFiltered approximates a chart from raw hit timestamps when
// operating in the URL-filter (in-memory) mode, where no database-side
// session count per bucket is available. Matching the original's documented
// lossy behavior, total sessionCount is distributed evenly across the
// buckets that actually contain at least one hit — this may slightly
// misattribute sessions whose hits span multiple buckets but is a close
// enough approximation for a chart, not an exact per-bucket session count.
func buildChartDataFiltered(hitTimes []time.Time, sessionCount int64, start, end, now time.Time) domain.ChartData {
	granularity := pickGranularity(start, end)
	step := bucketStep(granularity)

	hitsByLabel := make(map[string]int64)
	for _, t := range hitTimes {
		hitsByLabel[bucketLabel(t, granularity)]++
	}

	limit := end
	if now.Before(limit) {
		limit = now
	}

	var labels []string
	for t := truncateTo(start, granularity); t.Before(limit); t = t.Add(step) {
		labels = append(labels, bucketLabel(t, granularity))
	}

	bucketsWithData := int64(0)
	for _, label := range labels {
		if hitsByLabel[label] > 0 {
			bucketsWithData++
		}
	}

	var sessionsPerBucket int64
	if bucketsWithData > 0 {
		sessionsPerBucket = sessionCount / bucketsWithData
	}

	points := make([]domain.ChartPoint, 0, len(labels))
	for i, label := range labels {
		t := truncateTo(start, granularity).Add(time.Duration(i) * step)
		point := domain.ChartPoint{Label: label, Tooltip: bucketTooltip(t, granularity), HitCount: hitsByLabel[label]}
		if hitsByLabel[label] > 0 {
			point.SessionCount = sessionsPerBucket
		}
		points = append(points, point)
	}

	return domain.ChartData{Granularity: granularityWire(granularity), Points: points}
}
