package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/ssobridge/pkg/audit"
	"github.com/platinummonkey/ssobridge/pkg/cache"
	"github.com/platinummonkey/ssobridge/pkg/config"
	"github.com/platinummonkey/ssobridge/pkg/httputil"
	"github.com/platinummonkey/ssobridge/pkg/observability"
	"github.com/platinummonkey/ssobridge/pkg/sso"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ssobridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting SSO bridge")

	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	store, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer store.Close()
	logger.Info("Connected to Redis")

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("open identity database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping identity database: %w", err)
	}
	logger.Info("Connected to identity database")

	var settingsStore sso.SettingsSource
	if path := cfg.SSO.SettingsFile; path != "" {
		fileStore, err := sso.NewFileSettingsStore(path, logger)
		if err != nil {
			return fmt.Errorf("open settings store: %w", err)
		}
		defer fileStore.Close()
		settingsStore = fileStore
		logger.WithField("path", path).Info("Watching settings file")
	}

	authenticator := sso.NewAuthenticator(
		sso.NewSettingsResolver(sso.StaticFromConfig(cfg.SSO), settingsStore),
		sso.NewRateLimiter(store, logger, metrics),
		sso.NewReplayGuard(store, logger, metrics),
		sso.NewRedemptionClient(logger, metrics),
		sso.NewPostgresIdentityStore(db),
		logger,
		metrics,
	)
	sessions := sso.NewSessionManager(store, sso.DefaultSessionTTL, logger, metrics)

	trail, err := audit.NewDBLogger(db)
	if err != nil {
		return fmt.Errorf("init audit trail: %w", err)
	}

	router := mux.NewRouter()
	sso.NewHandlers(authenticator, sessions, trail, logger).RegisterRoutes(router)

	handler := httputil.Chain(
		httputil.RequestIDMiddleware(logger),
		httputil.LoggingMiddleware(logger),
		httputil.RecoveryMiddleware(logger),
		metrics.HTTPMetricsMiddleware,
	)(router)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, store))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:      healthMux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, server, healthServer)
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", server.Addr).Info("SSO bridge listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("sso server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	return g.Wait()
}
