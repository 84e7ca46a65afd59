package main

import (
	"time"

	"github.com/meowmeowtoast/yangyu-report/internal/handlers"
	"github.com/meowmeowtoast/yangyu-report/internal/ingest"
	"github.com/meowmeowtoast/yangyu-report/internal/metrics"
	"github.com/meowmeowtoast/yangyu-report/internal/preview"
	"github.com/meowmeowtoast/yangyu-report/internal/store"
	"github.com/meowmeowtoast/yangyu-report/pkg/config"
	"github.com/meowmeowtoast/yangyu-report/pkg/logging"
	"github.com/meowmeowtoast/yangyu-report/pkg/monitoring"
	"github.com/meowmeowtoast/yangyu-report/pkg/server"
	"github.com/meowmeowtoast/yangyu-report/pkg/version"
)

func main() {
	logger := logging.NewLoggerWithService("pulseboard")
	config.LoadEnv(logger)

	logger.Info("Starting Pulseboard (Social Analytics API)")

	loc := config.GetLocation(logger)
	proxyBase := config.GetEnv("PREVIEW_PROXY_BASE", "")
	httpPort := config.GetEnv("PORT", "18080")

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("pulseboard", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("pulseboard", version.Version, version.GitCommit)
	serviceMetrics := metrics.New(metricsCollector)

	// Open the persistence backend
	dataStore, err := store.NewFromEnv(serviceMetrics, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}
	defer func() { _ = dataStore.Close() }()

	healthChecker.AddCheck("store", monitoring.StoreHealthCheck("store", dataStore.Ping))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DASHBOARD_TZ": loc.String(),
	}))

	// Preview fetcher with its per-permalink cache
	previewCfg := preview.DefaultConfig()
	previewCfg.ProxyBase = proxyBase
	previewCfg.Timeout = time.Duration(config.GetEnvInt("PREVIEW_TIMEOUT_SECONDS", 10)) * time.Second
	fetcher := preview.NewFetcher(previewCfg, serviceMetrics.PreviewHooks(), logger)

	// HTTP API
	h := handlers.New(dataStore, ingest.New(loc), fetcher, serviceMetrics, logger, loc)

	router := server.SetupRouter(logger, "pulseboard", healthChecker, metricsCollector)
	h.RegisterRoutes(router)

	serverConfig := server.DefaultConfig("pulseboard", httpPort)
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("HTTP server failed")
	}
}
