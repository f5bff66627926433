// Package notify dispatches push notifications through an HTTP relay and
// keeps the durable bookkeeping around them: the append-only notification
// log used for same-day dedup, and the pending reminder records the sweep
// consumes.
//
// Delivery is fire-and-forget. A transport failure is logged and the
// notification is still recorded as sent — dedup correctness is favored
// over delivery guarantees.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// Type distinguishes the two notification categories in the log.
type Type string

const (
	TypeMorning  Type = "morning"
	TypeReminder Type = "reminder"
)

// ReminderKind identifies which pre-sunset reminder a record represents.
type ReminderKind string

const (
	KindOneHour   ReminderKind = "one_hour"
	KindTenMinute ReminderKind = "ten_minute"
)

// Lead returns how long before sunset this reminder kind fires.
func (k ReminderKind) Lead() time.Duration {
	if k == KindTenMinute {
		return 10 * time.Minute
	}
	return time.Hour
}

// Snapshot is the prediction state captured at send or scheduling time.
type Snapshot struct {
	SunsetTime time.Time
	Tier       quality.Tier
	Percent    float64
}

// Record is one row of the append-only notification log.
type Record struct {
	ID       int64
	DeviceID uuid.UUID
	Type     Type
	SentAt   time.Time
	Snapshot Snapshot
}

// Reminder is a scheduled future reminder. scheduledFor is always in the
// future at creation time; the scan never creates make-up reminders.
type Reminder struct {
	ID           int64
	DeviceID     uuid.UUID
	Kind         ReminderKind
	ScheduledFor time.Time
	Snapshot     Snapshot
	CreatedAt    time.Time
}

// Pusher sends a push message to one device token.
type Pusher interface {
	Send(ctx context.Context, token, title, body string) error
}

// Recorder appends to the durable notification log.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Dispatcher couples best-effort push delivery with unconditional recording.
type Dispatcher struct {
	pusher  Pusher
	records Recorder
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher. pusher may be nil (push disabled);
// records must not be.
func NewDispatcher(pusher Pusher, records Recorder, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{pusher: pusher, records: records, logger: logger}
}

// Notify sends the push (failures logged, never surfaced) and then records
// the notification. The record is written whether or not the transport
// accepted the message; only a record write failure is returned.
func (d *Dispatcher) Notify(ctx context.Context, token string, title, body string, rec Record) error {
	if d.pusher == nil {
		d.logger.Info("push disabled, recording only",
			"device_id", rec.DeviceID, "type", rec.Type, "title", title)
	} else if err := d.pusher.Send(ctx, token, title, body); err != nil {
		d.logger.Warn("push send failed",
			"device_id", rec.DeviceID, "type", rec.Type, "error", err)
	}
	return d.records.Record(ctx, rec)
}
