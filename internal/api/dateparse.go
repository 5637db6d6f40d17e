// Package api implements the JSON HTTP API: service management and the
// analytics query endpoints backed by internal/analytics.
package api

import (
	"net/http"
	"strconv"
	"time"
)

// dateLayouts is the fallback chain tried in order: RFC3339, a zone-less
// timestamp with seconds, one without seconds, then a bare date (midnight is
// assumed). Zone-less forms are read as UTC.
var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseWindow resolves the start/end query parameters, defaulting to the
// trailing 30 days, reading a bare end date as 23:59:59 of that day, and
// auto-swapping the pair if the client sent them reversed, rather than
// rejecting the request outright.
func parseWindow(r *http.Request, now time.Time) (start, end time.Time, ok bool) {
	q := r.URL.Query()

	end = now
	start = now.Add(-30 * 24 * time.Hour)

	if raw := q.Get("endDate"); raw != "" {
		parsed, valid := parseDate(raw)
		if !valid {
			return time.Time{}, time.Time{}, false
		}
		if len(raw) == len("2006-01-02") {
			parsed = parsed.Add(24*time.Hour - time.Second)
		}
		end = parsed
	}
	if raw := q.Get("startDate"); raw != "" {
		parsed, valid := parseDate(raw)
		if !valid {
			return time.Time{}, time.Time{}, false
		}
		start = parsed
	}

	if start.After(end) {
		start, end = end, start
	}
	return start, end, true
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	q := r.URL.Query()
	limit = defaultLimit
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset = 0
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
