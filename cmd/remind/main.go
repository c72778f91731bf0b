// Command remind is the Botiquin reminder scheduler CLI.
//
// Usage:
//
//	botiquin-remind run
//	botiquin-remind worker --interval 60
//	botiquin-remind vapid
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wowfoxz/botiquin-data/internal/config"
	"github.com/wowfoxz/botiquin-data/internal/db"
	"github.com/wowfoxz/botiquin-data/internal/push"
	"github.com/wowfoxz/botiquin-data/internal/reminder"
	"github.com/wowfoxz/botiquin-data/internal/store/postgres"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "botiquin-remind",
		Short: "Botiquin reminder scheduler CLI",
	}

	root.AddCommand(runCmd())
	root.AddCommand(workerCmd())
	root.AddCommand(vapidCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute a single scheduler pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScheduler(func(ctx context.Context, s *reminder.Scheduler) error {
				start := time.Now()
				result := s.Run(ctx, time.Now().UTC())
				logger.Info("Pass finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("pass error", "error", e)
				}
				if !result.Success {
					return fmt.Errorf("scheduler pass failed")
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// worker command
// --------------------------------------------------------------------------

func workerCmd() *cobra.Command {
	var intervalSeconds int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run scheduler passes on a fixed interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScheduler(func(ctx context.Context, s *reminder.Scheduler) error {
				interval := time.Duration(intervalSeconds) * time.Second
				reminder.StartWorker(ctx, s, interval, logger)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&intervalSeconds, "interval", 60, "Seconds between passes")
	return cmd
}

// --------------------------------------------------------------------------
// vapid command
// --------------------------------------------------------------------------

func vapidCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid",
		Short: "Generate a VAPID key pair for Web Push",
		RunE: func(cmd *cobra.Command, args []string) error {
			private, public, err := push.GenerateVAPIDKeys()
			if err != nil {
				return fmt.Errorf("generate keys: %w", err)
			}
			fmt.Printf("VAPID_PUBLIC_KEY=%s\n", public)
			fmt.Printf("VAPID_PRIVATE_KEY=%s\n", private)
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withScheduler handles config loading, DB connection, scheduler wiring,
// and context cancellation.
func withScheduler(fn func(ctx context.Context, s *reminder.Scheduler) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	stores := postgres.New(pool.Pool)
	sender := push.NewSender(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	if sender == nil {
		logger.Warn("Push delivery disabled: VAPID keys not configured")
	}

	return fn(ctx, &reminder.Scheduler{
		Treatments:    stores.Treatments,
		Medications:   stores.Medications,
		Intakes:       stores.Intakes,
		Notifications: stores.Notifications,
		Preferences:   stores.Preferences,
		Subscriptions: stores.Subscriptions,
		Transport:     sender,
		Logger:        logger,
		Workers:       cfg.ReminderWorkers,
	})
}
