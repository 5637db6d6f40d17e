package api

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateFallsBackAcrossLayouts(t *testing.T) {
	full, ok := parseDate("2026-07-30T14:30:00Z")
	require.True(t, ok)
	assert.Equal(t, 2026, full.Year())

	short, ok := parseDate("2026-07-30T14:30")
	require.True(t, ok)
	assert.Equal(t, 14, short.Hour())

	bare, ok := parseDate("2026-07-30")
	require.True(t, ok)
	assert.Equal(t, 0, bare.Hour())

	_, ok = parseDate("not-a-date")
	assert.False(t, ok)

	_, ok = parseDate("")
	assert.False(t, ok)
}

func TestParseWindowDefaultsToTrailing30Days(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	r := &http.Request{URL: &url.URL{}}

	start, end, ok := parseWindow(r, now)
	require.True(t, ok)
	assert.Equal(t, now, end)
	assert.Equal(t, now.Add(-30*24*time.Hour), start)
}

func TestParseWindowSwapsReversedRange(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	r := &http.Request{URL: &url.URL{RawQuery: "startDate=2026-07-30&endDate=2026-07-01"}}

	start, end, ok := parseWindow(r, now)
	require.True(t, ok)
	assert.True(t, start.Before(end))
}

func TestParseWindowRejectsMalformedDate(t *testing.T) {
	now := time.Now()
	r := &http.Request{URL: &url.URL{RawQuery: "startDate=garbage"}}

	_, _, ok := parseWindow(r, now)
	assert.False(t, ok)
}

func TestParseLimitOffsetDefaultsAndCaps(t *testing.T) {
	r := &http.Request{URL: &url.URL{}}
	limit, offset := parseLimitOffset(r, 50, 500)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	r = &http.Request{URL: &url.URL{RawQuery: "limit=10000&offset=20"}}
	limit, offset = parseLimitOffset(r, 50, 500)
	assert.Equal(t, 500, limit)
	assert.Equal(t, 20, offset)
}
