package api

import (
	"net/http"
	"regexp"
	"time"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/httpmw"
)

// handleGetStats handles GET /api/services/{serviceID}/stats, the CoreStats
// endpoint backing the dashboard overview.
func (a *API) handleGetStats(w http.ResponseWriter, r *http.Request) {
	id, err := a.parseServiceID(r)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}

	svc, err := a.store.GetService(r.Context(), id)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}

	now := time.Now().UTC()
	start, end, ok := parseWindow(r, now)
	if !ok {
		httpmw.WriteError(w, apperr.InvalidDateRange())
		return
	}

	// An invalid urlPattern is ignored rather than rejected: a malformed
	// regex from a dashboard text box shouldn't take the whole query down,
	// it should just behave as if no filter were supplied.
	var urlPattern *regexp.Regexp
	if raw := r.URL.Query().Get("urlPattern"); raw != "" {
		if compiled, err := regexp.Compile(raw); err == nil {
			urlPattern = compiled
		}
	}

	mode := "aggregate"
	if urlPattern != nil {
		mode = "url_filter"
	}

	queryStart := time.Now()
	stats, err := a.engine.GetCoreStats(r.Context(), svc, start, end, urlPattern, now)
	duration := time.Since(queryStart)

	if a.metrics != nil {
		a.metrics.RecordQuery(mode, duration)
	}
	if a.logger != nil {
		a.logger.LogQuery(r.Context(), svc.ID.String(), mode, duration, err)
	}

	if err != nil {
		httpmw.WriteError(w, err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, stats)
}
