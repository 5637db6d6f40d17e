// Package analytics implements the query engine that turns raw session/hit
// rows into the CoreStats response: top-N breakdowns across seven
// dimensions, a time-bucketed chart, and a trend comparison against the
// immediately preceding window of equal length.
package analytics

import (
	"context"
	"regexp"
	"time"

	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/store"
)

// TopNLimit bounds every breakdown (locations, referrers, countries, OSes,
// browsers, devices, device types) to its most frequent entries.
const TopNLimit = 300

// defaultActiveCutoff is the cutoff New uses when given a non-positive one:
// how recently a session must have been seen to count as "currently
// online", independent of the requested query window.
const defaultActiveCutoff = 5 * time.Minute

// Engine computes CoreStats for a service over a time window.
type Engine struct {
	store        *store.Store
	activeCutoff time.Duration
}

// New constructs an Engine backed by st.
func New(st *store.Store, activeCutoff time.Duration) *Engine {
	if activeCutoff <= 0 {
		activeCutoff = defaultActiveCutoff
	}
	return &Engine{store: st, activeCutoff: activeCutoff}
}

// GetCoreStats computes the full CoreStats response for svc over
// [start, end), optionally restricted to hits whose location matches
// urlPattern. now is passed explicitly (rather than read from time.Now())
// so chart-fill and currently-online cutoffs are computed consistently
// against a single reference instant across the whole call.
func (e *Engine) GetCoreStats(ctx context.Context, svc domain.Service, start, end time.Time, urlPattern *regexp.Regexp, now time.Time) (*domain.CoreStats, error) {
	primary, err := e.getRelativeStats(ctx, svc, start, end, urlPattern, now)
	if err != nil {
		return nil, err
	}

	compareStart := start.Add(-end.Sub(start))
	compare, err := e.getRelativeStats(ctx, svc, compareStart, start, urlPattern, now)
	if err != nil {
		return nil, err
	}

	return &domain.CoreStats{RelativeStats: *primary, Compare: compare}, nil
}

func (e *Engine) getRelativeStats(ctx context.Context, svc domain.Service, start, end time.Time, urlPattern *regexp.Regexp, now time.Time) (*domain.RelativeStats, error) {
	if urlPattern != nil {
		return e.getRelativeStatsWithURLFilter(ctx, svc, start, end, urlPattern, now)
	}
	return e.getRelativeStatsAggregate(ctx, svc, start, end, now)
}

// getRelativeStatsAggregate is the SQL-pushdown path: every breakdown and
// the chart are computed with GROUP BY/date_trunc, never loading raw rows
// into the process.
func (e *Engine) getRelativeStatsAggregate(ctx context.Context, svc domain.Service, start, end, now time.Time) (*domain.RelativeStats, error) {
	online, err := e.store.CurrentlyOnline(ctx, svc.ID, now, e.activeCutoff)
	if err != nil {
		return nil, err
	}

	hasHits, err := e.store.HasHits(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	counts, err := e.store.Counts(ctx, svc.ID, start, end)
	if err != nil {
		return nil, err
	}

	locations, err := e.store.CountedField(ctx, svc.ID, start, end, "location", TopNLimit)
	if err != nil {
		return nil, err
	}
	referrers, err := e.store.CountedFieldInitial(ctx, svc.ID, start, end, "referrer", TopNLimit)
	if err != nil {
		return nil, err
	}
	referrers = filterHiddenReferrers(referrers, svc.HideReferrerRegex)
	countries, err := e.store.CountedField(ctx, svc.ID, start, end, "country", TopNLimit)
	if err != nil {
		return nil, err
	}
	oses, err := e.store.CountedField(ctx, svc.ID, start, end, "os", TopNLimit)
	if err != nil {
		return nil, err
	}
	browsers, err := e.store.CountedField(ctx, svc.ID, start, end, "browser", TopNLimit)
	if err != nil {
		return nil, err
	}
	devices, err := e.store.CountedField(ctx, svc.ID, start, end, "device", TopNLimit)
	if err != nil {
		return nil, err
	}
	deviceTypes, err := e.store.CountedField(ctx, svc.ID, start, end, "device_type", TopNLimit)
	if err != nil {
		return nil, err
	}

	var buckets []store.ChartBucket
	if pickGranularity(start, end) == "hourly" {
		buckets, err = e.store.HourlyChartBuckets(ctx, svc.ID, start, end)
	} else {
		buckets, err = e.store.DailyChartBuckets(ctx, svc.ID, start, end)
	}
	if err != nil {
		return nil, err
	}

	stats := &domain.RelativeStats{
		CurrentlyOnline:    online,
		SessionCount:       counts.SessionCount,
		HitCount:           counts.HitCount,
		HasHits:            hasHits,
		BounceCount:        counts.BounceCount,
		BounceRatePct:      bounceRatePct(counts.BounceCount, counts.SessionCount),
		AvgLoadTimeMs:      avgLoadTimeMs(counts.AvgLoadTimeMs, counts.LoadTimeSamples),
		AvgHitsPerSession:  avgHitsPerSession(counts.HitCount, counts.SessionCount),
		AvgSessionDuration: avgSessionDuration(counts.AvgSessionDuration, counts.SessionCount),
		Locations:          locations,
		Referrers:          referrers,
		Countries:          countries,
		OperatingSystems:   oses,
		Browsers:           browsers,
		Devices:            devices,
		DeviceTypes:        deviceTypes,
		Chart:              buildChartData(buckets, start, end, now),
	}
	return stats, nil
}

// bounceRatePct is None when session_count=0: a rate has no meaning over
// zero sessions.
func bounceRatePct(bounces, sessions int64) *float64 {
	if sessions == 0 {
		return nil
	}
	v := round1(float64(bounces) / float64(sessions) * 100)
	return &v
}

// avgHitsPerSession is None when session_count=0.
func avgHitsPerSession(hits, sessions int64) *float64 {
	if sessions == 0 {
		return nil
	}
	v := round1(float64(hits) / float64(sessions))
	return &v
}

// avgLoadTimeMs is None when no hit in the window carried a load_time
// sample, independent of how many hits there were overall.
func avgLoadTimeMs(avg, samples int64) *int64 {
	if samples == 0 {
		return nil
	}
	v := avg
	return &v
}

// avgSessionDuration is None over an empty window.
func avgSessionDuration(avg, sessions int64) *int64 {
	if sessions == 0 {
		return nil
	}
	v := avg
	return &v
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func filterHiddenReferrers(items []domain.CountedItem, hidePattern string) []domain.CountedItem {
	if hidePattern == "" {
		return items
	}
	re, err := regexp.Compile(hidePattern)
	if err != nil {
		return items
	}
	out := make([]domain.CountedItem, 0, len(items))
	for _, item := range items {
		if !re.MatchString(item.Label) {
			out = append(out, item)
		}
	}
	return out
}
