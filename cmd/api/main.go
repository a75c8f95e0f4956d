// Package main is the entry point for the search API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/machinesoul11/yg-backend-sub016/internal/adapter"
	"github.com/machinesoul11/yg-backend-sub016/internal/analytics"
	"github.com/machinesoul11/yg-backend-sub016/internal/api"
	"github.com/machinesoul11/yg-backend-sub016/internal/auth"
	"github.com/machinesoul11/yg-backend-sub016/internal/cache"
	"github.com/machinesoul11/yg-backend-sub016/internal/config"
	"github.com/machinesoul11/yg-backend-sub016/internal/db"
	"github.com/machinesoul11/yg-backend-sub016/internal/health"
	"github.com/machinesoul11/yg-backend-sub016/internal/middleware"
	"github.com/machinesoul11/yg-backend-sub016/internal/search"
)

func main() {
	configFile := flag.String("config", "", "path to optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Unified Search API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Redis is optional; without it search runs uncached.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	// Prometheus registry with process and Go runtime collectors.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	searchMetrics := search.NewMetrics()
	if err := searchMetrics.Register(registry); err != nil {
		logger.Error("failed to register search metrics", "error", err)
		os.Exit(1)
	}
	recorderMetrics := analytics.NewRecorderMetrics()
	if err := recorderMetrics.Register(registry); err != nil {
		logger.Error("failed to register analytics metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}

	// Scoring calibration with hot reload on SIGHUP.
	searchCfg, err := search.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		logger.Warn("calibration load failed, using defaults", "error", err, "path", cfg.CalibrationPath)
	}
	provider := search.NewProvider(searchCfg)

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	go func() {
		for range sighup {
			reloaded, err := search.LoadCalibration(cfg.CalibrationPath)
			if err != nil {
				logger.Error("calibration reload failed, keeping current config", "error", err)
				continue
			}
			provider.Swap(reloaded)
			logger.Info("calibration reloaded", "path", cfg.CalibrationPath)
		}
	}()

	// Analytics pipeline.
	sink := analytics.NewPostgresSink(database, logger)
	recorder := analytics.NewRecorder(sink, cfg.AnalyticsBufferSize, recorderMetrics, logger)
	defer recorder.Close()

	// Response cache.
	var resultCache search.ResultCache
	if redisClient != nil {
		resultCache = cache.New(redisClient, time.Duration(cfg.CacheTTLSeconds)*time.Second, logger)
	}

	adapters := []search.Adapter{
		adapter.NewPostgresAssetAdapter(database, logger),
		adapter.NewPostgresCreatorAdapter(database, logger),
		adapter.NewPostgresProjectAdapter(database, logger),
		adapter.NewPostgresLicenseAdapter(database, logger),
	}

	service, err := search.NewService(adapters, provider, recorder, resultCache, searchMetrics, logger)
	if err != nil {
		logger.Error("failed to create search service", "error", err)
		os.Exit(1)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	searchHandlers := api.NewSearchHandlers(service)
	clickHandlers := api.NewClickHandlers(recorder)
	analyticsHandlers := api.NewAnalyticsHandlers(sink)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    health.NewDBChecker(database),
		RedisChecker: redisChecker(redisClient),
	})

	// Rate limiting for the search surface.
	rateStore := middleware.NewInMemoryRateLimitStore()
	searchLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.SearchRateLimit,
		WindowDuration:    time.Minute,
	}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rateStore.Cleanup()
		}
	}()

	limited := middleware.RateLimiter(rateStore, searchLimit, middleware.CallerKeyFunc(), httpMetrics, "search")

	mux := http.NewServeMux()
	mux.Handle("/api/search",
		httpMetrics.HTTPMetrics("/api/search")(limited(http.HandlerFunc(searchHandlers.Search))))
	mux.Handle("/api/search/click",
		httpMetrics.HTTPMetrics("/api/search/click")(limited(http.HandlerFunc(clickHandlers.Click))))
	mux.Handle("/api/admin/search/analytics",
		httpMetrics.HTTPMetrics("/api/admin/search/analytics")(http.HandlerFunc(analyticsHandlers.Summary)))
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Apply middleware: RequestID -> Auth -> Logging
	handler := middleware.RequestID(auth.Middleware(jwtService)(middleware.Logging(logger)(mux)))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// redisChecker returns a health checker for the Redis client, or nil
// when Redis is not configured.
func redisChecker(client *redis.Client) api.HealthChecker {
	if client == nil {
		return nil
	}
	return health.NewRedisChecker(client)
}
