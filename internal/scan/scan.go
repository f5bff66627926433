// Package scan implements the morning scan: the periodic job that decides,
// per device, whether tonight's sunset clears the user's quality bar, sends
// the morning alert, and schedules the pre-sunset reminders.
//
// Run takes the current instant as a parameter rather than reading a clock,
// so ticks are replayable in tests. Each device is processed independently;
// one device's failure never aborts the batch.
package scan

import (
	"context"
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

// DeviceLister provides the current device snapshots.
type DeviceLister interface {
	List(ctx context.Context) ([]device.Device, error)
}

// NotificationLog reads the recent notification history for dedup.
type NotificationLog interface {
	Recent(ctx context.Context, deviceID uuid.UUID, limit int) ([]notify.Record, error)
}

// Dispatcher sends a push and records it.
type Dispatcher interface {
	Notify(ctx context.Context, token, title, body string, rec notify.Record) error
}

// ReminderCreator persists a pending reminder.
type ReminderCreator interface {
	CreateReminder(ctx context.Context, r notify.Reminder) error
}

// Deps are the collaborators one scan run needs. All reads go to the
// current stored state; nothing is cached between ticks.
type Deps struct {
	Devices    DeviceLister
	Source     prediction.Source
	Log        NotificationLog
	Dispatcher Dispatcher
	Reminders  ReminderCreator
	Logger     *slog.Logger
}

// Result summarizes one scan run.
type Result struct {
	DevicesSeen        int
	Skipped            int
	Dispatched         int
	RemindersScheduled int
	Duration           time.Duration
	Errors             []string
}

// Summary returns a human-readable one-liner.
func (r *Result) Summary() string {
	return fmt.Sprintf("seen=%d skipped=%d dispatched=%d reminders=%d errors=%d dur=%s",
		r.DevicesSeen, r.Skipped, r.Dispatched, r.RemindersScheduled,
		len(r.Errors), r.Duration.Round(time.Millisecond))
}

// Run evaluates every device against the current tick. now is the single
// time reference for the whole run.
func Run(ctx context.Context, now time.Time, deps Deps) Result {
	start := time.Now()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var result Result
	devices, err := deps.Devices.List(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("list devices: %v", err))
		result.Duration = time.Since(start)
		return result
	}
	result.DevicesSeen = len(devices)

	for i := range devices {
		dev := &devices[i]
		dispatched, reminders, err := scanDevice(ctx, now, deps, logger, dev)
		if err != nil {
			logger.Warn("device scan failed", "token", dev.Token, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("device %s: %v", dev.Token, err))
			continue
		}
		if dispatched {
			result.Dispatched++
			result.RemindersScheduled += reminders
		} else {
			result.Skipped++
		}
	}

	result.Duration = time.Since(start)
	logger.Info("Morning scan complete", "summary", result.Summary())
	return result
}

// scanDevice runs the per-device pipeline: preference gate, local-time
// gate, same-day dedup, fetch, threshold, dispatch, reminder scheduling.
// Returns whether a morning alert went out and how many reminders were
// created.
func scanDevice(ctx context.Context, now time.Time, deps Deps, logger *slog.Logger, dev *device.Device) (bool, int, error) {
	if !dev.NotifyMorning {
		return false, 0, nil
	}

	// Indeterminate timezones never pass; the gate fails closed.
	if !localtime.InMorningWindow(dev.Timezone, now) {
		return false, 0, nil
	}

	already, err := sentMorningToday(ctx, deps.Log, dev, now)
	if err != nil {
		return false, 0, fmt.Errorf("dedup lookup: %w", err)
	}
	if already {
		return false, 0, nil
	}

	// The date string is computed in the device's timezone so the correct
	// calendar day is requested near midnight boundaries.
	date := localtime.LocalDate(dev.Timezone, now)
	pred, err := deps.Source.Fetch(ctx, dev.Latitude, dev.Longitude, date, dev.Timezone)
	if err != nil {
		// No data means skip, not alarm. Next tick tries again naturally.
		logger.Warn("prediction unavailable", "token", dev.Token, "date", date, "error", err)
		return false, 0, nil
	}

	if !pred.Table.Meets(pred.Percent, dev.MinQuality) {
		return false, 0, nil
	}

	title, body := morningCopy(pred, dev.Timezone)
	rec := notify.Record{
		DeviceID: dev.ID,
		Type:     notify.TypeMorning,
		SentAt:   now,
		Snapshot: snapshot(pred),
	}
	if err := deps.Dispatcher.Notify(ctx, dev.Token, title, body, rec); err != nil {
		return false, 0, fmt.Errorf("record morning notification: %w", err)
	}

	// The two reminder kinds are independent; both may be scheduled from
	// one scan.
	reminders := 0
	for _, rk := range []struct {
		kind    notify.ReminderKind
		enabled bool
	}{
		{notify.KindOneHour, dev.NotifyHourBefore},
		{notify.KindTenMinute, dev.NotifyTenMinutes},
	} {
		kind := rk.kind
		if !rk.enabled {
			continue
		}
		fireAt := pred.SunsetTime.Add(-kind.Lead())
		// A fire time already behind us means the window passed; no
		// late-firing make-up reminder.
		if !fireAt.After(now) {
			continue
		}
		err := deps.Reminders.CreateReminder(ctx, notify.Reminder{
			DeviceID:     dev.ID,
			Kind:         kind,
			ScheduledFor: fireAt,
			Snapshot:     snapshot(pred),
		})
		if err != nil {
			logger.Warn("schedule reminder failed", "token", dev.Token, "kind", kind, "error", err)
			continue
		}
		reminders++
	}
	return true, reminders, nil
}

// sentMorningToday checks the bounded recent history for a morning record
// on or after the start of the device's local day.
func sentMorningToday(ctx context.Context, log NotificationLog, dev *device.Device, now time.Time) (bool, error) {
	recent, err := log.Recent(ctx, dev.ID, notify.RecentLookback)
	if err != nil {
		return false, err
	}
	dayStart := localtime.StartOfDay(dev.Timezone, now)
	for _, rec := range recent {
		if rec.Type == notify.TypeMorning && !rec.SentAt.Before(dayStart) {
			return true, nil
		}
	}
	return false, nil
}

func morningCopy(p *prediction.Prediction, timezone string) (title, body string) {
	title = fmt.Sprintf("%s sunset expected tonight", p.Tier)
	body = fmt.Sprintf("Quality around %d%%. Sunset at %s.",
		int(math.Round(p.Percent)), localtime.Clock(p.SunsetTime, timezone))
	return title, body
}

func snapshot(p *prediction.Prediction) notify.Snapshot {
	return notify.Snapshot{SunsetTime: p.SunsetTime, Tier: p.Tier, Percent: p.Percent}
}
