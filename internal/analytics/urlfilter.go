package analytics

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/store"
)

// getRelativeStatsWithURLFilter loads every hit (joined with its session's
// breakdown fields) in the window and aggregates in memory after filtering
// by urlPattern against the hit's location. This is unavoidably more
// expensive than the SQL-pushdown path, since a regex cannot be pushed into
// a GROUP BY, but it is only exercised when a caller actually supplies a URL
// filter.
func (e *Engine) getRelativeStatsWithURLFilter(ctx context.Context, svc domain.Service, start, end time.Time, urlPattern *regexp.Regexp, now time.Time) (*domain.RelativeStats, error) {
	online, err := e.store.CurrentlyOnline(ctx, svc.ID, now, e.activeCutoff)
	if err != nil {
		return nil, err
	}
	hasHits, err := e.store.HasHits(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.ListHitsInWindowJoined(ctx, svc.ID, start, end)
	if err != nil {
		return nil, err
	}

	var (
		filtered        []store.HitSessionRow
		sessionSet      = make(map[domain.SessionID]struct{})
		loadTimeSum     int64
		loadTimeCount   int64
		hitTimes        []time.Time
		locationCounts   = make(map[string]int64)
		referrerCounts   = make(map[string]int64)
		countryCounts    = make(map[string]int64)
		osCounts         = make(map[string]int64)
		browserCounts    = make(map[string]int64)
		deviceCounts     = make(map[string]int64)
		deviceTypeCounts = make(map[string]int64)
		seenSessionInit  = make(map[domain.SessionID]bool)
	)

	for _, row := range rows {
		if !urlPattern.MatchString(row.Hit.Location) {
			continue
		}
		filtered = append(filtered, row)
		sessionSet[row.SessionID] = struct{}{}
		hitTimes = append(hitTimes, row.Hit.StartTime)

		if row.Hit.LoadTimeMs != nil {
			loadTimeSum += int64(*row.Hit.LoadTimeMs)
			loadTimeCount++
		}

		if row.Hit.Location != "" {
			locationCounts[row.Hit.Location]++
		}
		if row.Country != "" {
			countryCounts[row.Country]++
		}
		if row.OS != "" {
			osCounts[row.OS]++
		}
		if row.Browser != "" {
			browserCounts[row.Browser]++
		}
		if row.Device != "" {
			deviceCounts[row.Device]++
		}
		if row.DeviceType != "" {
			deviceTypeCounts[string(row.DeviceType)]++
		}

		// Referrers are counted once per session, on that session's first
		// matching hit in scan order; unlike the SQL path, the hit's
		// is_initial flag is not consulted.
		if !seenSessionInit[row.SessionID] {
			seenSessionInit[row.SessionID] = true
			if row.Hit.Referrer != "" {
				referrerCounts[row.Hit.Referrer]++
			}
		}
	}

	hitCount := int64(len(filtered))
	sessionCount := int64(len(sessionSet))

	var avgLoadTime *int64
	if loadTimeCount > 0 {
		v := loadTimeSum / loadTimeCount
		avgLoadTime = &v
	}

	stats := &domain.RelativeStats{
		CurrentlyOnline:    online,
		SessionCount:       sessionCount,
		HitCount:           hitCount,
		HasHits:            hasHits,
		AvgLoadTimeMs:      avgLoadTime,
		AvgHitsPerSession:  avgHitsPerSession(hitCount, sessionCount),
		Locations:          toCountedItems(locationCounts),
		Referrers:          filterHiddenReferrers(toCountedItems(referrerCounts), svc.HideReferrerRegex),
		Countries:          toCountedItems(countryCounts),
		OperatingSystems:   toCountedItems(osCounts),
		Browsers:           toCountedItems(browserCounts),
		Devices:            toCountedItems(deviceCounts),
		DeviceTypes:        toCountedItems(deviceTypeCounts),
		Chart:              buildChartDataFiltered(hitTimes, sessionCount, start, end, now),
	}

	// Bounce rate and session duration are session-level metrics; computing
	// them correctly under a hit-level URL filter would require a separate
	// per-session query, so (matching the documented lossy approximation
	// for this mode) they are reported as unavailable rather than
	// misleadingly derived from the filtered hit set.
	stats.BounceCount = 0
	stats.BounceRatePct = nil
	stats.AvgSessionDuration = nil

	return stats, nil
}

func toCountedItems(counts map[string]int64) []domain.CountedItem {
	items := make([]domain.CountedItem, 0, len(counts))
	for label, count := range counts {
		items = append(items, domain.CountedItem{Label: label, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Label < items[j].Label
	})
	if len(items) > TopNLimit {
		items = items[:TopNLimit]
	}
	return items
}
