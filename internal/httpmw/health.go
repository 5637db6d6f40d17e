package httpmw

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus is the liveness/readiness response body.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler returns a readiness handler that pings db.
func HealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{Status: "healthy", Checks: map[string]string{}}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks["database"] = err.Error()
		} else {
			status.Checks["database"] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}

// LivenessHandler is a trivial liveness probe that never depends on
// downstream state.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}
