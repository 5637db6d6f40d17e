package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/beaconstat/analytics/internal/apperr"
	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/httpmw"
)

type serviceRequest struct {
	Name              string `json:"name"`
	Origins           string `json:"origins"`
	CollectIPs        bool   `json:"collectIps"`
	AggressiveSalting bool   `json:"aggressiveSalting"`
	IgnoreRobots      bool   `json:"ignoreRobots"`
	HideReferrerRegex string `json:"hideReferrerRegex"`
	ScriptInject      string `json:"scriptInject"`
}

// handleCreateService handles POST /api/services.
func (a *API) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpmw.WriteError(w, apperr.New(apperr.CodeInvalidOrigin, http.StatusBadRequest, "malformed request body"))
		return
	}

	svc := domain.Service{
		Name:              req.Name,
		Origins:           req.Origins,
		CollectIPs:        req.CollectIPs,
		AggressiveSalting: req.AggressiveSalting,
		IgnoreRobots:      req.IgnoreRobots,
		HideReferrerRegex: req.HideReferrerRegex,
		ScriptInject:      req.ScriptInject,
	}

	created, err := a.store.CreateService(r.Context(), svc)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}
	httpmw.WriteJSON(w, http.StatusCreated, created)
}

// handleListServices handles GET /api/services.
func (a *API) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := a.store.ListServices(r.Context())
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}
	httpmw.WriteJSON(w, http.StatusOK, services)
}

func (a *API) parseServiceID(r *http.Request) (domain.ServiceID, error) {
	raw := chi.URLParam(r, "serviceID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return domain.ServiceID{}, apperr.InvalidUUID(err)
	}
	return id, nil
}

// handleGetService handles GET /api/services/{serviceID}.
func (a *API) handleGetService(w http.ResponseWriter, r *http.Request) {
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
	httpmw.WriteJSON(w, http.StatusOK, svc)
}

// handleUpdateService handles PUT /api/services/{serviceID}.
func (a *API) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	id, err := a.parseServiceID(r)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpmw.WriteError(w, apperr.New(apperr.CodeInvalidOrigin, http.StatusBadRequest, "malformed request body"))
		return
	}

	svc := domain.Service{
		ID:                id,
		Name:              req.Name,
		Origins:           req.Origins,
		Status:            domain.ServiceActive,
		CollectIPs:        req.CollectIPs,
		AggressiveSalting: req.AggressiveSalting,
		IgnoreRobots:      req.IgnoreRobots,
		HideReferrerRegex: req.HideReferrerRegex,
		ScriptInject:      req.ScriptInject,
	}

	updated, err := a.store.UpdateService(r.Context(), svc)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}
	a.cache.InvalidateService(id.String())
	httpmw.WriteJSON(w, http.StatusOK, updated)
}

// handleDeleteService handles DELETE /api/services/{serviceID}.
func (a *API) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	id, err := a.parseServiceID(r)
	if err != nil {
		httpmw.WriteError(w, err)
		return
	}
	if err := a.store.DeleteService(r.Context(), id); err != nil {
		httpmw.WriteError(w, err)
		return
	}
	a.cache.InvalidateService(id.String())
	w.WriteHeader(http.StatusNoContent)
}
