// Package scheduler runs the periodic jobs as Go tickers: the morning scan,
// the reminder sweep, and retention cleanup. All scheduled work is driven
// from the API process since it is already a persistent, long-running
// service.
//
// Ticks pass time.Now() into the pure scan/sweep entry points; the jobs
// themselves never read an ambient clock.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/skyglow-app/skyglow-server/internal/scan"
	"github.com/skyglow-app/skyglow-server/internal/sweep"
)

// Config controls job intervals. Zero duration disables a job.
type Config struct {
	ScanInterval    time.Duration // morning scan cadence (hourly)
	SweepInterval   time.Duration // reminder sweep cadence (5 minutes)
	CleanupInterval time.Duration // notification log retention
	RetentionDays   int
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		ScanInterval:    time.Hour,
		SweepInterval:   5 * time.Minute,
		CleanupInterval: 6 * time.Hour,
		RetentionDays:   30,
	}
}

// Cleaner purges old notification records.
type Cleaner interface {
	PurgeOldRecords(ctx context.Context, before time.Time) (int64, error)
}

// Deps bundles the collaborators the jobs run against.
type Deps struct {
	Scan    scan.Deps
	Sweep   sweep.Deps
	Cleaner Cleaner
}

// Start launches all configured tickers. Blocks until ctx is cancelled.
// Intended to be called with `go`. Overlapping ticks are tolerated: the
// sweep claims by delete and scan dedup is per-day.
func Start(ctx context.Context, cfg Config, deps Deps, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Schedulers started",
		"scan", cfg.ScanInterval,
		"sweep", cfg.SweepInterval,
		"cleanup", cfg.CleanupInterval)

	tickers := make([]*time.Ticker, 0, 3)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.ScanInterval > 0 {
		t := time.NewTicker(cfg.ScanInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { scan.Run(ctx, time.Now(), deps.Scan) })
	}

	if cfg.SweepInterval > 0 {
		t := time.NewTicker(cfg.SweepInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { sweep.Run(ctx, time.Now(), deps.Sweep) })
	}

	if cfg.CleanupInterval > 0 && deps.Cleaner != nil {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, cfg, deps.Cleaner, logger) })
	}

	<-ctx.Done()
	logger.Info("Schedulers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// cleanup purges notification records past the retention horizon. Pending
// reminders clean themselves up on claim.
func cleanup(ctx context.Context, cfg Config, cleaner Cleaner, logger *slog.Logger) {
	cutoff := time.Now().AddDate(0, 0, -cfg.RetentionDays)
	purged, err := cleaner.PurgeOldRecords(ctx, cutoff)
	if err != nil {
		logger.Warn("Cleanup: failed to purge old notifications", "error", err)
		return
	}
	if purged > 0 {
		logger.Info("Cleanup: purged old notifications", "count", purged)
	}
}
