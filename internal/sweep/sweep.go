// Package sweep implements the reminder sweep: the short-cadence job that
// fires due pre-sunset reminders after re-validating conditions at the
// device's current location.
//
// Due reminders are claimed by an atomic delete, so each one is processed
// by exactly one run even when runs overlap, and the record is gone whether
// or not a push goes out. Delivery is re-validated, never guaranteed: a
// device that moved somewhere worse, or whose fresh fetch fails, gets a
// silent drop.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/skyglow-app/skyglow-server/internal/device"
	"github.com/skyglow-app/skyglow-server/internal/localtime"
	"github.com/skyglow-app/skyglow-server/internal/notify"
	"github.com/skyglow-app/skyglow-server/internal/prediction"
)

// ReminderClaimer atomically removes and returns due reminders.
type ReminderClaimer interface {
	ClaimDue(ctx context.Context, now time.Time) ([]notify.Reminder, error)
}

// DeviceGetter resolves the owning device for a reminder.
type DeviceGetter interface {
	ByID(ctx context.Context, id uuid.UUID) (*device.Device, error)
}

// Dispatcher sends a push and records it.
type Dispatcher interface {
	Notify(ctx context.Context, token, title, body string, rec notify.Record) error
}

// Deps are the collaborators one sweep run needs.
type Deps struct {
	Reminders  ReminderClaimer
	Devices    DeviceGetter
	Source     prediction.Source
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

// Result summarizes one sweep run.
type Result struct {
	Claimed    int
	Dispatched int
	Dropped    int
	Duration   time.Duration
	Errors     []string
}

// Summary returns a human-readable one-liner.
func (r *Result) Summary() string {
	return fmt.Sprintf("claimed=%d dispatched=%d dropped=%d errors=%d dur=%s",
		r.Claimed, r.Dispatched, r.Dropped, len(r.Errors),
		r.Duration.Round(time.Millisecond))
}

// Run claims every reminder due at now and re-validates each against fresh
// conditions. Per-reminder failures are isolated; the claim already removed
// the record, so nothing is re-processed next tick.
func Run(ctx context.Context, now time.Time, deps Deps) Result {
	start := time.Now()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var result Result
	claimed, err := deps.Reminders.ClaimDue(ctx, now)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("claim due reminders: %v", err))
		result.Duration = time.Since(start)
		return result
	}
	result.Claimed = len(claimed)

	for _, rem := range claimed {
		sent, err := fireReminder(ctx, now, deps, logger, rem)
		if err != nil {
			logger.Warn("reminder processing failed", "reminder_id", rem.ID, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("reminder %d: %v", rem.ID, err))
			continue
		}
		if sent {
			result.Dispatched++
		} else {
			result.Dropped++
		}
	}

	result.Duration = time.Since(start)
	if result.Claimed > 0 {
		logger.Info("Reminder sweep complete", "summary", result.Summary())
	}
	return result
}

// fireReminder re-fetches conditions at the device's current stored
// location (not the one captured at scheduling time — this is how same-day
// relocation is handled) and dispatches only if the fresh percent still
// meets the device's current threshold.
func fireReminder(ctx context.Context, now time.Time, deps Deps, logger *slog.Logger, rem notify.Reminder) (bool, error) {
	dev, err := deps.Devices.ByID(ctx, rem.DeviceID)
	if errors.Is(err, device.ErrNotFound) {
		// Claim already deleted the reminder, so nothing resurrects it.
		logger.Warn("reminder for missing device dropped", "device_id", rem.DeviceID)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("device lookup: %w", err)
	}

	date := localtime.LocalDate(dev.Timezone, now)
	pred, err := deps.Source.Fetch(ctx, dev.Latitude, dev.Longitude, date, dev.Timezone)
	if err != nil {
		logger.Info("reminder dropped, prediction unavailable",
			"token", dev.Token, "kind", rem.Kind, "error", err)
		return false, nil
	}

	// Preferences may have changed since scheduling; use the current one.
	if !pred.Table.Meets(pred.Percent, dev.MinQuality) {
		logger.Info("reminder dropped, below threshold",
			"token", dev.Token, "kind", rem.Kind,
			"percent", pred.Percent, "min", dev.MinQuality.String())
		return false, nil
	}

	title, body := reminderCopy(rem.Kind, pred, dev.Timezone)
	rec := notify.Record{
		DeviceID: dev.ID,
		Type:     notify.TypeReminder,
		SentAt:   now,
		Snapshot: notify.Snapshot{SunsetTime: pred.SunsetTime, Tier: pred.Tier, Percent: pred.Percent},
	}
	if err := deps.Dispatcher.Notify(ctx, dev.Token, title, body, rec); err != nil {
		return false, fmt.Errorf("record reminder notification: %w", err)
	}
	return true, nil
}

// reminderCopy varies by kind: the ten-minute reminder is a go-now nudge,
// the one-hour one a heads-up.
func reminderCopy(kind notify.ReminderKind, p *prediction.Prediction, timezone string) (title, body string) {
	percent := int(math.Round(p.Percent))
	clock := localtime.Clock(p.SunsetTime, timezone)
	if kind == notify.KindTenMinute {
		title = "Sunset in 10 minutes"
		body = fmt.Sprintf("Head out now — %s conditions (%d%%) at %s.", p.Tier, percent, clock)
		return title, body
	}
	title = "Sunset in about an hour"
	body = fmt.Sprintf("Still looking %s (%d%%). Sunset at %s.", p.Tier, percent, clock)
	return title, body
}
