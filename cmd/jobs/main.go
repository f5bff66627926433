// Command jobs is the Skyglow operations CLI: one-shot runs of the
// scheduled jobs, plus a prediction preview for spot checks.
//
// Usage:
//
//	skyglow-jobs scan
//	skyglow-jobs sweep
//	skyglow-jobs cleanup --days 30
//	skyglow-jobs predict --lat 37.77 --lon -122.42 --tz America/Los_Angeles
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

	"github.com/skyglow-app/skyglow-server/internal/config"
	"github.com/skyglow-app/skyglow-server/internal/db"
	"github.com/skyglow-app/skyglow-server/internal/device"
	"github.com/skyglow-app/skyglow-server/internal/localtime"
	"github.com/skyglow-app/skyglow-server/internal/notify"
	"github.com/skyglow-app/skyglow-server/internal/prediction"
	"github.com/skyglow-app/skyglow-server/internal/scan"
	"github.com/skyglow-app/skyglow-server/internal/sweep"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "skyglow-jobs",
		Short: "Skyglow scheduled-job CLI",
	}

	root.AddCommand(scanCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(cleanupCmd())
	root.AddCommand(predictCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// scan command
// --------------------------------------------------------------------------

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Run one morning scan over all devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				devices := device.NewStore(pool.Pool)
				store := notify.NewStore(pool.Pool)
				result := scan.Run(ctx, time.Now(), scan.Deps{
					Devices:    devices,
					Source:     buildSource(cfg),
					Log:        store,
					Dispatcher: buildDispatcher(cfg, store),
					Reminders:  store,
					Logger:     logger,
				})
				logger.Info("Scan finished", "summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("scan error", "error", e)
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// sweep command
// --------------------------------------------------------------------------

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				store := notify.NewStore(pool.Pool)
				result := sweep.Run(ctx, time.Now(), sweep.Deps{
					Reminders:  store,
					Devices:    device.NewStore(pool.Pool),
					Source:     buildSource(cfg),
					Dispatcher: buildDispatcher(cfg, store),
					Logger:     logger,
				})
				logger.Info("Sweep finished", "summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("sweep error", "error", e)
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// cleanup command
// --------------------------------------------------------------------------

func cleanupCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Purge notification records past the retention horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if days <= 0 {
					days = cfg.RetentionDays
				}
				cutoff := time.Now().AddDate(0, 0, -days)
				purged, err := notify.NewStore(pool.Pool).PurgeOldRecords(ctx, cutoff)
				if err != nil {
					return fmt.Errorf("purge old notifications: %w", err)
				}
				logger.Info("Cleanup finished", "purged", purged, "cutoff", cutoff.Format(time.RFC3339))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default from NOTIFICATION_RETENTION_DAYS)")
	return cmd
}

// --------------------------------------------------------------------------
// predict command
// --------------------------------------------------------------------------

func predictCmd() *cobra.Command {
	var lat, lon float64
	var timezone string
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Fetch and print the sunset prediction for a coordinate",
		RunE: func(cmd *cobra.Command, args []string) error {
			// No database needed here; only config and the source.
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			date := localtime.LocalDate(timezone, time.Now())
			pred, err := buildSource(cfg).Fetch(ctx, lat, lon, date, timezone)
			if err != nil {
				return fmt.Errorf("fetch prediction: %w", err)
			}

			fmt.Printf("date:    %s\n", date)
			fmt.Printf("quality: %s (%.0f%%)\n", pred.Tier, pred.Percent)
			fmt.Printf("sunset:  %s\n", pred.SunsetTime.Format(time.RFC3339))
			if pred.CloudCover != nil {
				fmt.Printf("clouds:  %.0f%%\n", *pred.CloudCover)
			}
			if pred.GoldenHourStart != nil && pred.GoldenHourEnd != nil {
				fmt.Printf("golden:  %s - %s\n",
					localtime.Clock(*pred.GoldenHourStart, timezone),
					localtime.Clock(*pred.GoldenHourEnd, timezone))
			}
			fmt.Printf("source:  %s\n", pred.Table.Source)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	cmd.Flags().StringVar(&timezone, "tz", "", "IANA timezone for the local date (defaults to UTC)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

// --------------------------------------------------------------------------
// shared wiring
// --------------------------------------------------------------------------

func buildSource(cfg *config.Config) prediction.Source {
	return prediction.ForConfig(cfg.SunburstAPIKey, cfg.SunburstBaseURL, cfg.SunburstRPM, logger)
}

func buildDispatcher(cfg *config.Config, store *notify.Store) *notify.Dispatcher {
	relay := notify.NewRelayClient(cfg.PushRelayURL, cfg.PushRelayRPM, logger)
	var pusher notify.Pusher
	if relay != nil {
		pusher = relay
	}
	return notify.NewDispatcher(pusher, store, logger)
}

// runJob handles config loading, schema bootstrap, DB connection, and
// context cancellation.
func runJob(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := db.EnsureSchema(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
