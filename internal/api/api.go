package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/beaconstat/analytics/internal/analytics"
	"github.com/beaconstat/analytics/internal/cache"
	"github.com/beaconstat/analytics/internal/logging"
	"github.com/beaconstat/analytics/internal/metrics"
	"github.com/beaconstat/analytics/internal/store"
)

// API serves the JSON endpoints backing a dashboard: service management and
// analytics queries.
type API struct {
	store   *store.Store
	engine  *analytics.Engine
	cache   *cache.AppCache
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Config bundles the dependencies an API needs.
type Config struct {
	Store   *store.Store
	Engine  *analytics.Engine
	Cache   *cache.AppCache
	Metrics *metrics.Metrics
	Logger  *logging.Logger
}

// New constructs an API.
func New(cfg Config) *API {
	return &API{store: cfg.Store, engine: cfg.Engine, cache: cfg.Cache, metrics: cfg.Metrics, logger: cfg.Logger}
}

// Mount registers every API route under r, typically itself mounted at
// "/api" by the caller.
func (a *API) Mount(r chi.Router) {
	r.Route("/services", func(r chi.Router) {
		r.Get("/", a.handleListServices)
		r.Post("/", a.handleCreateService)
		r.Route("/{serviceID}", func(r chi.Router) {
			r.Get("/", a.handleGetService)
			r.Put("/", a.handleUpdateService)
			r.Delete("/", a.handleDeleteService)
			r.Get("/stats", a.handleGetStats)
			r.Get("/sessions", a.handleListSessions)
		})
	})
	r.Get("/sessions/{sessionID}/hits", a.handleListSessionHits)
}
