package beacon

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/ingress"
	"github.com/beaconstat/analytics/internal/logging"
	"github.com/beaconstat/analytics/internal/metrics"
	"github.com/beaconstat/analytics/internal/privacy"
	"github.com/beaconstat/analytics/internal/store"
)

const defaultHeartbeatFrequency = 30 * time.Second

// Handler serves the three public beacon endpoint shapes and owns nothing
// beyond what it needs to resolve a tracking ID to a service and hand the
// decoded event to the ingress processor.
type Handler struct {
	store              *store.Store
	processor          *ingress.Processor
	metrics            *metrics.Metrics
	logger             *logging.Logger
	ignoredNetworks    []*net.IPNet
	defaultHTTPS       bool
	heartbeatFrequency time.Duration
}

// Config bundles the dependencies a Handler needs.
type Config struct {
	Store              *store.Store
	Processor          *ingress.Processor
	Metrics            *metrics.Metrics
	Logger             *logging.Logger
	IgnoredNetworks    []*net.IPNet
	DefaultHTTPS       bool
	HeartbeatFrequency time.Duration
}

// New constructs a beacon Handler.
func New(cfg Config) *Handler {
	freq := cfg.HeartbeatFrequency
	if freq <= 0 {
		freq = defaultHeartbeatFrequency
	}
	return &Handler{
		store:              cfg.Store,
		processor:          cfg.Processor,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
		ignoredNetworks:    cfg.IgnoredNetworks,
		defaultHTTPS:       cfg.DefaultHTTPS,
		heartbeatFrequency: freq,
	}
}

// Mount registers the beacon routes on r. Each of the three adapter shapes
// (pixel, script-GET, script-POST) is registered twice: once bare and once
// with a trailing "/{identifier}" segment, since the identifier is an
// optional part of the path rather than a query parameter.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/trace/px_{trackingID}.gif", h.handlePixel)
	r.Get("/trace/px_{trackingID}/{identifier}.gif", h.handlePixel)
	r.Get("/trace/app_{trackingID}.js", h.handleScript)
	r.Get("/trace/app_{trackingID}/{identifier}.js", h.handleScript)
	r.Post("/trace/app_{trackingID}.js", h.handleBeaconPOST)
	r.Post("/trace/app_{trackingID}/{identifier}.js", h.handleBeaconPOST)
}

// detectProtocol infers the externally-visible scheme, honoring reverse
// proxy headers before falling back to the operator-configured default
// (load balancers terminating TLS rarely set r.TLS on the origin request).
func detectProtocol(r *http.Request, defaultHTTPS bool) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Ssl"), "on") {
		return "https"
	}
	if defaultHTTPS {
		return "https"
	}
	return "http"
}

// checkOrigin applies the privacy gate's origin check: a wildcard service
// admits every caller and echoes back "*"; otherwise the caller's derived
// origin must exact-match an entry in the service's allow-list.
func checkOrigin(r *http.Request, svc domain.Service) (corsOrigin string, ok bool) {
	if svc.Origins == "*" {
		return "*", true
	}
	origin := privacy.DeriveOrigin(r.Header)
	if origin == "" || !svc.IsOriginAllowed(origin) {
		return "", false
	}
	return origin, true
}

// writeCORSHeaders applies the full CORS triad uniformly across every
// beacon response type: the tracker script and pixel are both loaded
// cross-origin from the tracked site, so both need the same header set.
func writeCORSHeaders(w http.ResponseWriter, origin string) {
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "GET,HEAD,OPTIONS,POST")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept, Authorization, Referer")
}

func (h *Handler) lookupService(ctx context.Context, trackingID string) (domain.Service, bool) {
	svc, err := h.store.GetServiceByTrackingID(ctx, trackingID)
	if err != nil || !svc.Status.IsActive() {
		return domain.Service{}, false
	}
	return svc, true
}

func (h *Handler) recordOutcome(svc domain.Service, tracker domain.TrackerType, outcome ingress.Outcome, start time.Time) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordIngress(svc.TrackingID, string(tracker), string(outcome), time.Since(start))
}

// handlePixel serves GET /trace/px_<trackingID>[/<identifier>].gif: the
// no-JS tracking pixel. The GIF is written immediately; since a pixel
// request carries no idempotency key and no load-time measurement, its
// event is recorded from whatever the request itself reveals — the
// referring page's URL is read from the Referer header, there being no
// other way for a bare <img> tag to report it.
func (h *Handler) handlePixel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	trackingID := chi.URLParam(r, "trackingID")
	identifier := chi.URLParam(r, "identifier")

	svc, ok := h.lookupService(r.Context(), trackingID)
	if !ok {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	corsOrigin, ok := checkOrigin(r, svc)
	if !ok {
		http.Error(w, "Invalid origin", http.StatusForbidden)
		return
	}
	writeCORSHeaders(w, corsOrigin)

	if privacy.IsDNTEnabled(r.Header) {
		writePixel(w)
		return
	}

	ip := privacy.ClientIP(r.Header)
	if privacy.IsIPIgnored(ip, h.ignoredNetworks) {
		writePixel(w)
		h.recordOutcome(svc, domain.TrackerPixel, ingress.OutcomeIPIgnored, start)
		return
	}

	referrer := privacy.Referrer(r.Header)
	payload := ingress.Payload{
		Location:   referrer,
		Referrer:   referrer,
		Identifier: identifier,
	}
	userAgent := privacy.UserAgent(r.Header)

	writePixel(w)

	ctx := context.WithoutCancel(r.Context())
	go func() {
		outcome, err := h.processor.Process(ctx, svc, domain.TrackerPixel, payload, ip, userAgent)
		if err != nil {
			h.logger.WithContext(ctx).WithError(err).Error("beacon: pixel processing failed")
			return
		}
		h.recordOutcome(svc, domain.TrackerPixel, outcome, start)
	}()
}

// handleScript serves GET /trace/app_<trackingID>[/<identifier>].js: the
// tracker snippet itself, not a beacon event. The snippet posts back to
// the exact path it was served from, so the identifier (if present)
// round-trips without the client script needing to know about it.
func (h *Handler) handleScript(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	svc, ok := h.lookupService(r.Context(), trackingID)
	if !ok {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	corsOrigin, ok := checkOrigin(r, svc)
	if !ok {
		http.Error(w, "Invalid origin", http.StatusForbidden)
		return
	}
	writeCORSHeaders(w, corsOrigin)

	if privacy.IsDNTEnabled(r.Header) {
		if err := writeDNTScript(w); err != nil {
			h.logger.WithContext(r.Context()).WithError(err).Error("beacon: dnt script render failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	vars := scriptVars{
		Protocol:             detectProtocol(r, h.defaultHTTPS),
		Endpoint:             r.Host + r.URL.Path,
		HeartbeatFrequencyMs: h.heartbeatFrequency.Milliseconds(),
		ScriptInject:         svc.ScriptInject,
	}
	if err := writeTrackerScript(w, vars); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("beacon: script render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type beaconBody struct {
	Idempotency string   `json:"idempotency"`
	Location    string   `json:"location"`
	Referrer    string   `json:"referrer"`
	LoadTime    *float64 `json:"loadTime"`
}

// handleBeaconPOST serves POST /trace/app_<trackingID>[/<identifier>].js:
// the JS tracker's preferred transport (navigator.sendBeacon), carrying a
// JSON body. The response is always the bare {"status":"OK"} object the
// tracker script expects, regardless of whether the event was actually
// persisted.
func (h *Handler) handleBeaconPOST(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	trackingID := chi.URLParam(r, "trackingID")
	identifier := chi.URLParam(r, "identifier")

	svc, ok := h.lookupService(r.Context(), trackingID)
	if !ok {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	corsOrigin, ok := checkOrigin(r, svc)
	if !ok {
		http.Error(w, "Invalid origin", http.StatusForbidden)
		return
	}
	writeCORSHeaders(w, corsOrigin)

	if privacy.IsDNTEnabled(r.Header) {
		writeBeaconOK(w)
		return
	}

	ip := privacy.ClientIP(r.Header)
	if privacy.IsIPIgnored(ip, h.ignoredNetworks) {
		writeBeaconOK(w)
		h.recordOutcome(svc, domain.TrackerJS, ingress.OutcomeIPIgnored, start)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeBeaconOK(w)
		return
	}
	var decoded beaconBody
	if len(body) > 0 {
		_ = json.Unmarshal(body, &decoded)
	}

	var loadTimeMs *int
	if decoded.LoadTime != nil {
		v := int(*decoded.LoadTime)
		loadTimeMs = &v
	}

	payload := ingress.Payload{
		Idempotency: decoded.Idempotency,
		Location:    decoded.Location,
		Referrer:    decoded.Referrer,
		LoadTimeMs:  loadTimeMs,
		Identifier:  identifier,
	}

	outcome, err := h.processor.Process(r.Context(), svc, domain.TrackerJS, payload, ip, privacy.UserAgent(r.Header))
	writeBeaconOK(w)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("beacon: post processing failed")
		return
	}
	h.recordOutcome(svc, domain.TrackerJS, outcome, start)
}

func writeBeaconOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "OK"})
}
