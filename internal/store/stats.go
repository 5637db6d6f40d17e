package store

import (
	"context"
	"fmt"
	"time"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/domain"
)

// allowedCountedColumns closes the set of column names CountedField and
// CountedFieldInitial may interpolate into a GROUP BY clause. Columns
// are never taken from caller input; this list exists so a future caller
// cannot accidentally turn a dynamic-column helper into a SQL injection
// vector by passing through a request-derived string.
var allowedCountedColumns = map[string]string{
	"location":    "hits.location",
	"referrer":    "hits.referrer",
	"country":     "sessions.country",
	"os":          "sessions.os",
	"browser":     "sessions.browser",
	"device":      "sessions.device",
	"device_type": "sessions.device_type",
}

// CountedField returns the top-N distinct values of column (looked up
// through allowedCountedColumns) across every hit/session-joined row in the
// window, ordered by descending count.
func (s *Store) CountedField(ctx context.Context, serviceID domain.ServiceID, start, end time.Time, column string, limit int) ([]domain.CountedItem, error) {
	expr, ok := allowedCountedColumns[column]
	if !ok {
		return nil, apperr.Internal(fmt.Sprintf("unsupported counted column %q", column), nil)
	}

	query := fmt.Sprintf(`
		SELECT %s AS label, COUNT(*) AS cnt
		FROM hits JOIN sessions ON sessions.id = hits.session_id
		WHERE hits.service_id = $1 AND hits.start_time >= $2 AND hits.start_time < $3
			AND %s <> ''
		GROUP BY %s
		ORDER BY cnt DESC
		LIMIT $4
	`, expr, expr, expr)

	return s.queryCountedItems(ctx, query, serviceID, start, end, limit)
}

// CountedFieldInitial is CountedField restricted to initial hits (one row
// per session rather than per pageview), used for session-scoped breakdowns
// like referrers where counting every heartbeat/pageview would
// over-represent long sessions.
func (s *Store) CountedFieldInitial(ctx context.Context, serviceID domain.ServiceID, start, end time.Time, column string, limit int) ([]domain.CountedItem, error) {
	expr, ok := allowedCountedColumns[column]
	if !ok {
		return nil, apperr.Internal(fmt.Sprintf("unsupported counted column %q", column), nil)
	}

	query := fmt.Sprintf(`
		SELECT %s AS label, COUNT(*) AS cnt
		FROM hits JOIN sessions ON sessions.id = hits.session_id
		WHERE hits.service_id = $1 AND hits.start_time >= $2 AND hits.start_time < $3
			AND hits.is_initial AND %s <> ''
		GROUP BY %s
		ORDER BY cnt DESC
		LIMIT $4
	`, expr, expr, expr)

	return s.queryCountedItems(ctx, query, serviceID, start, end, limit)
}

func (s *Store) queryCountedItems(ctx context.Context, query string, serviceID domain.ServiceID, start, end time.Time, limit int) ([]domain.CountedItem, error) {
	rows, err := s.db.QueryContext(ctx, query, serviceID, start, end, limit)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []domain.CountedItem
	for rows.Next() {
		var item domain.CountedItem
		if err := rows.Scan(&item.Label, &item.Count); err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, item)
	}
	return out, apperr.Database(rows.Err())
}

// WindowCounts is the set of scalar aggregates computed over the window for
// the aggregate stats path (session/hit/bounce counts, average load time,
// average session duration). Averages are rounded to whole units.
type WindowCounts struct {
	SessionCount       int64
	HitCount           int64
	BounceCount        int64
	LoadTimeSamples    int64 // hits in window with a non-null load_time_ms
	AvgLoadTimeMs      int64
	AvgSessionDuration int64
}

// Counts computes the scalar aggregates for a service's window. AVG alone
// can't distinguish "no rows" from "average is zero", so each average is
// paired with a COUNT of the values actually averaged; callers use that
// count to decide whether the average is present at all.
func (s *Store) Counts(ctx context.Context, serviceID domain.ServiceID, start, end time.Time) (WindowCounts, error) {
	var wc WindowCounts

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_bounce THEN 1 ELSE 0 END), 0)
		FROM sessions
		WHERE service_id = $1 AND start_time >= $2 AND start_time < $3
	`, serviceID, start, end).Scan(&wc.SessionCount, &wc.BounceCount)
	if err != nil {
		return WindowCounts{}, apperr.Database(err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(load_time_ms), COALESCE(ROUND(AVG(load_time_ms)), 0)::bigint
		FROM hits
		WHERE service_id = $1 AND start_time >= $2 AND start_time < $3
	`, serviceID, start, end).Scan(&wc.HitCount, &wc.LoadTimeSamples, &wc.AvgLoadTimeMs)
	if err != nil {
		return WindowCounts{}, apperr.Database(err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (last_seen - start_time)))), 0)::bigint
		FROM sessions
		WHERE service_id = $1 AND start_time >= $2 AND start_time < $3
	`, serviceID, start, end).Scan(&wc.AvgSessionDuration)
	if err != nil {
		return WindowCounts{}, apperr.Database(err)
	}

	return wc, nil
}

// CurrentlyOnline counts sessions for a service whose last_seen falls within
// activeCutoff of now, regardless of the query window.
func (s *Store) CurrentlyOnline(ctx context.Context, serviceID domain.ServiceID, now time.Time, activeCutoff time.Duration) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions WHERE service_id = $1 AND last_seen > $2
	`, serviceID, now.Add(-activeCutoff)).Scan(&count)
	return count, apperr.Database(err)
}

// HasHits reports whether a service has any hit at all, independent of the
// query window (used to distinguish "a new service with zero traffic" from
// "zero traffic in the selected window").
func (s *Store) HasHits(ctx context.Context, serviceID domain.ServiceID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM hits WHERE service_id = $1)`, serviceID).Scan(&exists)
	return exists, apperr.Database(err)
}

// ChartBucket is one SQL-pushdown time bucket of session/hit counts.
type ChartBucket struct {
	BucketStart  time.Time
	SessionCount int64
	HitCount     int64
}

// HourlyChartBuckets returns per-hour session/hit counts via date_trunc,
// for buckets that have at least one hit (callers fill the gaps).
func (s *Store) HourlyChartBuckets(ctx context.Context, serviceID domain.ServiceID, start, end time.Time) ([]ChartBucket, error) {
	return s.chartBuckets(ctx, serviceID, start, end, "hour")
}

// DailyChartBuckets returns per-day session/hit counts via date_trunc.
func (s *Store) DailyChartBuckets(ctx context.Context, serviceID domain.ServiceID, start, end time.Time) ([]ChartBucket, error) {
	return s.chartBuckets(ctx, serviceID, start, end, "day")
}

func (s *Store) chartBuckets(ctx context.Context, serviceID domain.ServiceID, start, end time.Time, trunc string) ([]ChartBucket, error) {
	query := fmt.Sprintf(`
		SELECT date_trunc('%s', hits.start_time) AS bucket,
			COUNT(DISTINCT hits.session_id) AS session_count,
			COUNT(*) AS hit_count
		FROM hits
		WHERE hits.service_id = $1 AND hits.start_time >= $2 AND hits.start_time < $3
		GROUP BY bucket
		ORDER BY bucket ASC
	`, trunc)

	rows, err := s.db.QueryContext(ctx, query, serviceID, start, end)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer rows.Close()

	var out []ChartBucket
	for rows.Next() {
		var b ChartBucket
		if err := rows.Scan(&b.BucketStart, &b.SessionCount, &b.HitCount); err != nil {
			return nil, apperr.Database(err)
		}
		out = append(out, b)
	}
	return out, apperr.Database(rows.Err())
}
