package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxSize: 10, CleanupInterval: time.Hour})
	c.Set("a", "value", 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestGetExpiredEntryIsAbsent(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxSize: 10, CleanupInterval: time.Hour})
	c.Set("a", "value", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTouchExtendsExpirationAndReturnsFalseForMissingKey(t *testing.T) {
	c := New(Config{DefaultTTL: 50 * time.Millisecond, MaxSize: 10, CleanupInterval: time.Hour})
	c.Set("a", "value", 50*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.True(t, c.Touch("a", 50*time.Millisecond))

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("a")
	assert.True(t, ok, "touch should have extended the entry past its original expiration")

	assert.False(t, c.Touch("missing", time.Minute))
}

func TestInvalidate(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxSize: 10, CleanupInterval: time.Hour})
	c.Set("a", 1, 0)
	c.Invalidate("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestInvalidatePattern(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, MaxSize: 10, CleanupInterval: time.Hour})
	c.Set("origins_svc1", "a", 0)
	c.Set("origins_svc2", "b", 0)
	c.Set("script_inject_svc1", "c", 0)

	c.InvalidatePattern("origins_")

	_, ok := c.Get("origins_svc1")
	assert.False(t, ok)
	_, ok = c.Get("origins_svc2")
	assert.False(t, ok)
	_, ok = c.Get("script_inject_svc1")
	assert.True(t, ok)
}

func TestCleanupEvictsExpiredAndOverCapacityEntries(t *testing.T) {
	c := New(Config{DefaultTTL: time.Hour, MaxSize: 2, CleanupInterval: time.Hour})

	c.Set("a", 1, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	c.Set("b", 2, time.Hour)
	c.Set("c", 3, 2*time.Hour)
	c.Set("d", 4, 3*time.Hour)

	evictedCount := 0
	c.OnEvict(func(n int) { evictedCount += n })

	c.cleanup()

	assert.LessOrEqual(t, c.Size(), 2)
	assert.Greater(t, evictedCount, 0)
}
