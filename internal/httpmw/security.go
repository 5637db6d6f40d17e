package httpmw

import "net/http"

// SecurityHeaders adds a conservative set of security headers to every
// response. The beacon routes override Cache-Control themselves where a
// long-lived cache is desired (the tracker script).
func SecurityHeaders() func(http.Handler) http.Handler {
	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for k, v := range headers {
				w.Header().Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
