package httpmw

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/privacy"
)

// RateLimiter throttles beacon ingestion per client IP, protecting the
// database/cache layer from a single misbehaving client without requiring a
// shared store (each process instance limits independently).
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rateEntry
	rps      rate.Limit
	burst    int
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond sustained
// with a short burst allowance, keyed by client IP.
func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 50
	}
	if burst <= 0 {
		burst = requestsPerSecond * 2
	}
	rl := &RateLimiter{
		limiters: make(map[string]*rateEntry),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
	}
	go rl.sweepStale()
	return rl
}

func (rl *RateLimiter) sweepStale() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, entry := range rl.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(rl.limiters, key)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// Handler returns middleware enforcing the limiter per client IP.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := privacy.ClientIP(r.Header)
		if !rl.allow(ip) {
			WriteError(w, apperr.New(apperr.CodeInternal, http.StatusTooManyRequests, "rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
