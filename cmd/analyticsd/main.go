// Command analyticsd serves beacon ingestion and the analytics JSON API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beaconstat/analytics/internal/analytics"
	"github.com/beaconstat/analytics/internal/api"
	"github.com/beaconstat/analytics/internal/beacon"
	"github.com/beaconstat/analytics/internal/cache"
	"github.com/beaconstat/analytics/internal/config"
	"github.com/beaconstat/analytics/internal/geo"
	"github.com/beaconstat/analytics/internal/httpmw"
	"github.com/beaconstat/analytics/internal/ingress"
	"github.com/beaconstat/analytics/internal/logging"
	"github.com/beaconstat/analytics/internal/metrics"
	"github.com/beaconstat/analytics/internal/privacy"
	"github.com/beaconstat/analytics/internal/store"
	"github.com/beaconstat/analytics/internal/ua"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New("analyticsd", cfg.LogLevel, cfg.LogFormat)
	logging.InitDefault("analyticsd", cfg.LogLevel, cfg.LogFormat)

	st, err := store.Open(cfg.DatabaseURL, cfg.DatabaseMaxOpenConn, cfg.DatabaseMaxIdleConn)
	if err != nil {
		logger.WithFields(map[string]interface{}{"error": err}).Fatal("failed to open database")
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := st.Migrate(ctx); err != nil {
		cancel()
		logger.WithFields(map[string]interface{}{"error": err}).Fatal("failed to apply migrations")
	}
	cancel()

	appCache := cache.NewAppCache(cache.AppConfig{
		MaxEntries:           cfg.CacheMaxEntries,
		CacheTTL:             cfg.CacheTTL,
		SessionMemoryTimeout: cfg.SessionMemoryTimeout,
	})

	geoLookup, err := geo.NewLookup(cfg.GeoCityDBPath, cfg.GeoASNDBPath)
	if err != nil {
		logger.WithFields(map[string]interface{}{"error": err}).Fatal("failed to open geoip databases")
	}
	defer geoLookup.Close()

	uaParser, err := ua.NewDefaultParser()
	if err != nil {
		logger.WithFields(map[string]interface{}{"error": err}).Fatal("failed to load user-agent regex database")
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New("analyticsd")
	}

	processor := ingress.New(st, appCache, geoLookup, uaParser, cfg.BlockAllIPs)
	engine := analytics.New(st, cfg.ActiveCutoff)

	ignoredNetworks := privacy.ParseIgnoredNetworks(cfg.IgnoredNetworksCSV)

	beaconHandler := beacon.New(beacon.Config{
		Store:              st,
		Processor:          processor,
		Metrics:            m,
		Logger:             logger,
		IgnoredNetworks:    ignoredNetworks,
		DefaultHTTPS:       cfg.DefaultHTTPS,
		HeartbeatFrequency: cfg.HeartbeatFrequency,
	})

	apiHandler := api.New(api.Config{
		Store:   st,
		Engine:  engine,
		Cache:   appCache,
		Metrics: m,
		Logger:  logger,
	})

	r := chi.NewRouter()
	r.Use(httpmw.Recovery(logger))
	r.Use(httpmw.RequestLogging(logger))
	r.Use(httpmw.SecurityHeaders())
	r.Use(httpmw.BodyLimit(cfg.MaxRequestBytes))
	r.Use(httpmw.Timeout(cfg.RequestTimeout))
	if m != nil {
		r.Use(httpmw.RequestMetrics("analyticsd", m))
	}

	limiter := httpmw.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	r.Get("/healthz", httpmw.HealthHandler(st.DB()))
	r.Get("/livez", httpmw.LivenessHandler)
	if m != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		beaconHandler.Mount(r)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(httpmw.CORS(httpmw.CORSConfig{AllowedOrigins: []string{"*"}}))
		apiHandler.Mount(r)
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.WithFields(map[string]interface{}{"addr": cfg.Addr()}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithFields(map[string]interface{}{"error": err}).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(map[string]interface{}{"error": err}).Error("graceful shutdown failed")
	}
}
