package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/httpmw"
)

// handleListSessions handles GET /api/services/{serviceID}/sessions, a
// paginated session listing for a time window.
func (a *API) handleListSessions(w http.ResponseWriter, r *http.Request) {
	id, err := a.parseServiceID(r)
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

	limit, offset := parseLimitOffset(r, 50, 500)

	sessions, err := a.store.ListSessions(r.Context(), id, start, end, limit, offset)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, sessions)
}

func parseSessionID(r *http.Request) (domain.SessionID, error) {
	raw := chi.URLParam(r, "sessionID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return domain.SessionID{}, apperr.InvalidUUID(err)
	}
	return id, nil
}

// handleListSessionHits handles GET /api/sessions/{sessionID}/hits, a
// paginated hit listing for a single session's timeline.
func (a *API) handleListSessionHits(w http.ResponseWriter, r *http.Request) {
	id, err := parseSessionID(r)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}

	if _, err := a.store.GetSession(r.Context(), id); err != nil {
		httpmw.WriteError(w, err)
		return
	}

	limit, offset := parseLimitOffset(r, 100, 1000)

	hits, err := a.store.ListHitsForSession(r.Context(), id, limit, offset)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, hits)
}
