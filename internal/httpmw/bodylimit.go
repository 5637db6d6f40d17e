package httpmw

import (
	"net/http"

	"github.com/beaconstat/analytics/internal/apperr"
)

const defaultMaxRequestBodyBytes int64 = 1 << 20 // 1MiB; beacon payloads are tiny JSON bodies

// BodyLimit caps request bodies to reduce memory/CPU load from oversized
// POST beacons.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxRequestBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				WriteError(w, apperr.New(apperr.CodeInternal, http.StatusRequestEntityTooLarge, "request body too large"))
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
