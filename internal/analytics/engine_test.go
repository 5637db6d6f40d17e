package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/beaconstat/analytics/internal/domain"
)

func TestBounceRatePct(t *testing.T) {
	assert.Nil(t, bounceRatePct(0, 0))
	assert.Equal(t, 50.0, *bounceRatePct(5, 10))
	assert.Equal(t, 33.3, *bounceRatePct(1, 3))
}

func TestAvgHitsPerSession(t *testing.T) {
	assert.Nil(t, avgHitsPerSession(10, 0))
	assert.Equal(t, 2.5, *avgHitsPerSession(5, 2))
}

func TestAvgLoadTimeMsNoneWithoutSamples(t *testing.T) {
	assert.Nil(t, avgLoadTimeMs(0, 0))
	assert.Equal(t, int64(120), *avgLoadTimeMs(120, 4))
}

func TestAvgSessionDurationNoneOverEmptyWindow(t *testing.T) {
	assert.Nil(t, avgSessionDuration(0, 0))
	assert.Equal(t, int64(60), *avgSessionDuration(60, 2))
}

func TestFilterHiddenReferrersRemovesMatches(t *testing.T) {
	items := []domain.CountedItem{
		{Label: "https://internal.example.com/dashboard", Count: 10},
		{Label: "https://google.com", Count: 5},
	}

	out := filterHiddenReferrers(items, `internal\.example\.com`)

	assert.Len(t, out, 1)
	assert.Equal(t, "https://google.com", out[0].Label)
}

func TestFilterHiddenReferrersNoPatternReturnsUnchanged(t *testing.T) {
	items := []domain.CountedItem{{Label: "https://google.com", Count: 5}}
	out := filterHiddenReferrers(items, "")
	assert.Equal(t, items, out)
}

func TestFilterHiddenReferrersInvalidPatternReturnsUnchanged(t *testing.T) {
	items := []domain.CountedItem{{Label: "https://google.com", Count: 5}}
	out := filterHiddenReferrers(items, "(unterminated")
	assert.Equal(t, items, out)
}

func TestToCountedItemsSortsByCountDescendingThenLabel(t *testing.T) {
	counts := map[string]int64{"b": 3, "a": 3, "c": 5}
	items := toCountedItems(counts)

	assert.Equal(t, "c", items[0].Label)
	assert.Equal(t, "a", items[1].Label)
	assert.Equal(t, "b", items[2].Label)
}

func TestToCountedItemsTruncatesToTopN(t *testing.T) {
	counts := make(map[string]int64, TopNLimit+10)
	for i := 0; i < TopNLimit+10; i++ {
		counts[string(rune('a'+i%26))+string(rune(i))] = int64(i)
	}
	items := toCountedItems(counts)
	assert.Len(t, items, TopNLimit)
}
