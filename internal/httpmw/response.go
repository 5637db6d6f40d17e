// Package httpmw provides the HTTP middleware stack shared by the beacon
// ingestion routes and the JSON analytics API.
package httpmw

import (
	"encoding/json"
	"net/http"

	"github.com/beaconstat/analytics/internal/apperr"
)

// responseWriter wraps http.ResponseWriter to capture the status code
// written, used by the logging and metrics middleware.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// envelope is the standard JSON API response shape: exactly one of Data or
// Error is populated.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// WriteJSON writes a successful JSON envelope.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// WriteError writes an error JSON envelope, mapping err to its
// *apperr.ServiceError HTTP status when classified.
func WriteError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}
