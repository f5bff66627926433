// Command api is the Skyglow server: the device/prediction HTTP API plus
// the background schedulers (morning scan, reminder sweep, retention
// cleanup).
//
// Usage:
//
//	skyglow-api
//	API_PORT=8080 skyglow-api

// @title Skyglow API
// @version 1.0.0
// @description Sunset quality prediction and push notification backend. Devices register a push token, location, and quality threshold; schedulers alert them on promising evenings.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/skyglow-app/skyglow-server/internal/api"
	"github.com/skyglow-app/skyglow-server/internal/cache"
	"github.com/skyglow-app/skyglow-server/internal/config"
	"github.com/skyglow-app/skyglow-server/internal/db"
	"github.com/skyglow-app/skyglow-server/internal/device"
	"github.com/skyglow-app/skyglow-server/internal/notify"
	"github.com/skyglow-app/skyglow-server/internal/prediction"
	"github.com/skyglow-app/skyglow-server/internal/scan"
	"github.com/skyglow-app/skyglow-server/internal/scheduler"
	"github.com/skyglow-app/skyglow-server/internal/sweep"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Schema bootstrap, then pool (prepared statements need the tables)
	logger.Info("Connecting to database...")
	if err := db.EnsureSchema(ctx, cfg.DatabaseURL); err != nil {
		logger.Error("Failed to bootstrap schema", "error", err)
		os.Exit(1)
	}
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Stores and collaborators
	devices := device.NewStore(pool.Pool)
	notifyStore := notify.NewStore(pool.Pool)
	appCache := cache.New(cfg.CacheEnabled)

	source := prediction.ForConfig(cfg.SunburstAPIKey, cfg.SunburstBaseURL, cfg.SunburstRPM, logger)
	if cfg.DemoMode() {
		logger.Info("No SUNBURST_API_KEY set, using deterministic demo predictions")
	}

	relay := notify.NewRelayClient(cfg.PushRelayURL, cfg.PushRelayRPM, logger)
	if relay == nil {
		logger.Info("Push delivery disabled (no PUSH_RELAY_URL)")
	}
	var pusher notify.Pusher
	if relay != nil {
		pusher = relay
	}
	dispatcher := notify.NewDispatcher(pusher, notifyStore, logger)

	// Background schedulers
	go scheduler.Start(ctx, scheduler.Config{
		ScanInterval:    cfg.ScanInterval,
		SweepInterval:   cfg.SweepInterval,
		CleanupInterval: cfg.CleanupInterval,
		RetentionDays:   cfg.RetentionDays,
	}, scheduler.Deps{
		Scan: scan.Deps{
			Devices:    devices,
			Source:     source,
			Log:        notifyStore,
			Dispatcher: dispatcher,
			Reminders:  notifyStore,
			Logger:     logger,
		},
		Sweep: sweep.Deps{
			Reminders:  notifyStore,
			Devices:    devices,
			Source:     source,
			Dispatcher: dispatcher,
			Logger:     logger,
		},
		Cleaner: notifyStore,
	}, logger)

	// HTTP server
	router := api.NewRouter(pool, devices, source, appCache, cfg)
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Skyglow API",
			"addr", addr,
			"environment", cfg.Environment,
			"demo_mode", cfg.DemoMode())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
