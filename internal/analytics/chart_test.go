package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconstat/analytics/internal/store"
)

func TestPickGranularityShortWindowIsHourly(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	assert.Equal(t, "hourly", pickGranularity(start, end))
}

func TestPickGranularityLongWindowIsDaily(t *testing.T) {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * 24 * time.Hour)
	assert.Equal(t, "daily", pickGranularity(start, end))
}

func TestBuildChartDataFillsGaps(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	now := end

	buckets := []store.ChartBucket{
		{BucketStart: start.Add(time.Hour), SessionCount: 3, HitCount: 5},
	}

	chart := buildChartData(buckets, start, end, now)

	require.Equal(t, "hourly", chart.Granularity)
	require.Len(t, chart.Points, 4)
	assert.Equal(t, int64(0), chart.Points[0].SessionCount)
	assert.Equal(t, int64(3), chart.Points[1].SessionCount)
	assert.Equal(t, int64(5), chart.Points[1].HitCount)
	assert.Equal(t, int64(0), chart.Points[2].SessionCount)
}

func TestBuildChartDataStopsAtNowWhenEndIsInFuture(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	end := start.Add(10 * time.Hour)
	now := start.Add(2 * time.Hour)

	chart := buildChartData(nil, start, end, now)

	assert.Len(t, chart.Points, 2)
}

func TestBuildChartDataFilteredDistributesSessionsAcrossBucketsWithData(t *testing.T) {
	start := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	now := end

	hitTimes := []time.Time{
		start.Add(30 * time.Minute),
		start.Add(90 * time.Minute),
	}

	chart := buildChartDataFiltered(hitTimes, 4, start, end, now)

	require.Len(t, chart.Points, 4)
	assert.Equal(t, int64(1), chart.Points[0].HitCount)
	assert.Equal(t, int64(2), chart.Points[0].SessionCount)
	assert.Equal(t, int64(1), chart.Points[1].HitCount)
	assert.Equal(t, int64(2), chart.Points[1].SessionCount)
	assert.Equal(t, int64(0), chart.Points[2].SessionCount)
}
