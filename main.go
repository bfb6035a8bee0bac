package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"peloton-planner/internal/config"
	"peloton-planner/internal/database"
	"peloton-planner/internal/handlers"
	"peloton-planner/internal/intervals"
	"peloton-planner/internal/metrics"
	"peloton-planner/internal/middleware"
	"peloton-planner/internal/push"
	"peloton-planner/internal/worker"
)

const (
	shutdownTimeout   = 10 * time.Second
	inventoryInterval = time.Minute
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevels[cfg.LogLevel],
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Starting peloton-planner",
		"addr", cfg.Addr(),
		"database", cfg.DatabasePath,
		"intervals_base_url", cfg.IntervalsBaseURL,
		"sync_enabled", cfg.SyncEnabled,
		"metrics_enabled", cfg.MetricsEnabled)

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	client := intervals.NewClient(cfg.IntervalsBaseURL, cfg.IntervalsTimeout(), logger)
	store := push.NewStore(db)
	pusher := push.NewPusher(store, client, logger, push.WithRecorder(store))
	syncer := worker.NewSyncer(db, client, cfg)

	app := newApp(handlers.New(db, pusher, syncer), cfg.InternalAPIKey)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SyncEnabled {
		go func() {
			if err := syncer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Sync worker failed", "error", err)
			}
		}()
	}

	var metricsServer *http.Server
	if cfg.MetricsEnabled {
		go metrics.StartInventoryCollector(ctx, db, inventoryInterval)
		metricsServer = startMetricsServer(cfg.MetricsAddr(), logger)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("API listening", "addr", cfg.Addr())
		serveErr <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("API shutdown failed", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", "error", err)
		}
	}

	logger.Info("Server stopped")
	return nil
}

// newApp builds the fiber app. A push makes several sequential Intervals.icu
// calls per athlete, so writes get a long timeout.
func newApp(h *handlers.Handler, apiKey string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "peloton-planner",
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          5 * time.Minute,
		IdleTimeout:           2 * time.Minute,
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.Metrics())

	h.Register(app, apiKey)
	return app
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Metrics listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return server
}
