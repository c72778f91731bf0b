// Command api is the Botiquin Data API server.
//
// Usage:
//
//	botiquin-api
//	API_PORT=8080 botiquin-api

// @title Botiquin Data API
// @version 1.0.0
// @description Household medication management backend: dose reminder scheduling, Web Push delivery, notification preferences, and intake registration.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Botiquin
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

	"github.com/wowfoxz/botiquin-data/internal/api"
	"github.com/wowfoxz/botiquin-data/internal/api/handler"
	"github.com/wowfoxz/botiquin-data/internal/cache"
	"github.com/wowfoxz/botiquin-data/internal/config"
	"github.com/wowfoxz/botiquin-data/internal/db"
	"github.com/wowfoxz/botiquin-data/internal/maintenance"
	"github.com/wowfoxz/botiquin-data/internal/push"
	"github.com/wowfoxz/botiquin-data/internal/reminder"
	"github.com/wowfoxz/botiquin-data/internal/store/postgres"

	_ "github.com/wowfoxz/botiquin-data/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Initialize cache
	appCache := cache.New(cfg.CacheEnabled)
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled)

	// Store adapters
	stores := postgres.New(pool.Pool)

	// Push sender (nil when VAPID keys are not configured)
	sender := push.NewSender(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)

	// Reminder scheduler + worker
	scheduler := &reminder.Scheduler{
		Treatments:    stores.Treatments,
		Medications:   stores.Medications,
		Intakes:       stores.Intakes,
		Notifications: stores.Notifications,
		Preferences:   stores.Preferences,
		Subscriptions: stores.Subscriptions,
		Transport:     sender,
		Logger:        logger,
		Workers:       cfg.ReminderWorkers,
	}
	if sender == nil {
		logger.Warn("Push delivery disabled: VAPID keys not configured")
	}
	go reminder.StartWorker(ctx, scheduler, cfg.ReminderTickInterval, logger)

	// Start maintenance tickers (cleanup, treatment deactivation)
	go maintenance.Start(ctx, pool.Pool, maintenance.DefaultConfig(), logger)

	// Create router
	router := api.NewRouter(handler.Deps{
		Config:         cfg,
		Cache:          appCache,
		Health:         pool,
		Scheduler:      scheduler,
		Subscriptions:  stores.Subscriptions,
		Preferences:    stores.Preferences,
		Intakes:        stores.Intakes,
		VAPIDPublicKey: sender.PublicKey(),
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Botiquin Data API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
