package httpmw

import (
	"net/http"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// Timeout enforces a maximum request processing duration.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = defaultRequestTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"success":false,"error":"request timed out"}`)
	}
}
