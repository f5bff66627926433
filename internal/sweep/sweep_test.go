package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skyglow-app/skyglow-server/internal/device"
	"github.com/skyglow-app/skyglow-server/internal/notify"
	"github.com/skyglow-app/skyglow-server/internal/prediction"
	"github.com/skyglow-app/skyglow-server/internal/quality"
)

var sweepNow = time.Date(2025, time.June, 15, 18, 0, 0, 0, time.UTC)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

// fakeReminders claims by draining due reminders, mirroring the store's
// delete-on-claim semantics.
type fakeReminders struct {
	pending []notify.Reminder
	err     error
}

func (f *fakeReminders) ClaimDue(ctx context.Context, now time.Time) ([]notify.Reminder, error) {
	if f.err != nil {
		return nil, f.err
	}
	var due, remaining []notify.Reminder
	for _, r := range f.pending {
		if !r.ScheduledFor.After(now) {
			due = append(due, r)
		} else {
			remaining = append(remaining, r)
		}
	}
	f.pending = remaining
	return due, nil
}

type fakeDevices struct {
	byID map[uuid.UUID]*device.Device
}

func (f *fakeDevices) ByID(ctx context.Context, id uuid.UUID) (*device.Device, error) {
	if d, ok := f.byID[id]; ok {
		return d, nil
	}
	return nil, device.ErrNotFound
}

type fakeDispatcher struct {
	records []notify.Record
	err     error
}

func (f *fakeDispatcher) Notify(ctx context.Context, token, title, body string, rec notify.Record) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeSource struct {
	pred *prediction.Prediction
	err  error
}

func (f *fakeSource) Fetch(ctx context.Context, lat, lon float64, date, timezone string) (*prediction.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pred, nil
}

func freshPrediction(percent float64) *prediction.Prediction {
	return &prediction.Prediction{
		Tier:       quality.LiveTable.Classify(percent),
		Percent:    percent,
		SunsetTime: sweepNow.Add(time.Hour),
		Table:      quality.LiveTable,
	}
}

func dueReminder(deviceID uuid.UUID, kind notify.ReminderKind) notify.Reminder {
	return notify.Reminder{
		ID:           1,
		DeviceID:     deviceID,
		Kind:         kind,
		ScheduledFor: sweepNow.Add(-time.Minute),
		Snapshot: notify.Snapshot{
			SunsetTime: sweepNow.Add(time.Hour),
			Tier:       quality.TierGreat,
			Percent:    75,
		},
	}
}

func sweepDevice(min quality.Tier) *device.Device {
	return &device.Device{
		ID:         uuid.New(),
		Token:      "tok-sweep",
		Latitude:   37.0,
		Longitude:  -122.0,
		Timezone:   "UTC",
		MinQuality: min,
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestSweepDispatchesWhenStillAboveThreshold(t *testing.T) {
	dev := sweepDevice(quality.TierGood)
	reminders := &fakeReminders{pending: []notify.Reminder{dueReminder(dev.ID, notify.KindOneHour)}}
	dispatcher := &fakeDispatcher{}

	res := Run(context.Background(), sweepNow, Deps{
		Reminders:  reminders,
		Devices:    &fakeDevices{byID: map[uuid.UUID]*device.Device{dev.ID: dev}},
		Source:     &fakeSource{pred: freshPrediction(70)},
		Dispatcher: dispatcher,
	})

	if res.Dispatched != 1 || len(dispatcher.records) != 1 {
		t.Fatalf("expected one dispatch, got %+v", res)
	}
	if dispatcher.records[0].Type != notify.TypeReminder {
		t.Errorf("record type = %v, want reminder", dispatcher.records[0].Type)
	}
	if len(reminders.pending) != 0 {
		t.Error("claimed reminder should be gone from the store")
	}
}

func TestSweepDropsAfterRelocationBelowThreshold(t *testing.T) {
	// Scheduled at 75%, but the device moved and the fresh fetch at the
	// current location comes back at 30%.
	dev := sweepDevice(quality.TierGood)
	reminders := &fakeReminders{pending: []notify.Reminder{dueReminder(dev.ID, notify.KindTenMinute)}}
	dispatcher := &fakeDispatcher{}

	res := Run(context.Background(), sweepNow, Deps{
		Reminders:  reminders,
		Devices:    &fakeDevices{byID: map[uuid.UUID]*device.Device{dev.ID: dev}},
		Source:     &fakeSource{pred: freshPrediction(30)},
		Dispatcher: dispatcher,
	})

	if res.Dropped != 1 || len(dispatcher.records) != 0 {
		t.Fatalf("expected a silent drop, got %+v", res)
	}
	if len(reminders.pending) != 0 {
		t.Error("reminder must be deleted even when dropped")
	}
}

func TestSweepDropsOnFetchFailure(t *testing.T) {
	dev := sweepDevice(quality.TierGood)
	reminders := &fakeReminders{pending: []notify.Reminder{dueReminder(dev.ID, notify.KindOneHour)}}
	dispatcher := &fakeDispatcher{}

	res := Run(context.Background(), sweepNow, Deps{
		Reminders:  reminders,
		Devices:    &fakeDevices{byID: map[uuid.UUID]*device.Device{dev.ID: dev}},
		Source:     &fakeSource{err: prediction.ErrNoModelData},
		Dispatcher: dispatcher,
	})

	if res.Dropped != 1 || len(res.Errors) != 0 {
		t.Fatalf("fetch failure should drop quietly, got %+v", res)
	}
}

func TestSweepMissingDeviceStillConsumesReminder(t *testing.T) {
	reminders := &fakeReminders{pending: []notify.Reminder{dueReminder(uuid.New(), notify.KindOneHour)}}
	dispatcher := &fakeDispatcher{}

	res := Run(context.Background(), sweepNow, Deps{
		Reminders:  reminders,
		Devices:    &fakeDevices{byID: map[uuid.UUID]*device.Device{}},
		Source:     &fakeSource{pred: freshPrediction(70)},
		Dispatcher: dispatcher,
	})

	if res.Dropped != 1 || len(res.Errors) != 0 {
		t.Fatalf("missing device should drop quietly, got %+v", res)
	}
	if len(reminders.pending) != 0 {
		t.Error("reminder must not resurrect on the next tick")
	}
}

func TestSweepLeavesFutureRemindersAlone(t *testing.T) {
	dev := sweepDevice(quality.TierGood)
	future := dueReminder(dev.ID, notify.KindOneHour)
	future.ScheduledFor = sweepNow.Add(30 * time.Minute)
	reminders := &fakeReminders{pending: []notify.Reminder{future}}

	res := Run(context.Background(), sweepNow, Deps{
		Reminders:  reminders,
		Devices:    &fakeDevices{byID: map[uuid.UUID]*device.Device{dev.ID: dev}},
		Source:     &fakeSource{pred: freshPrediction(70)},
		Dispatcher: &fakeDispatcher{},
	})

	if res.Claimed != 0 {
		t.Errorf("future reminder must not be claimed, got %+v", res)
	}
	if len(reminders.pending) != 1 {
		t.Error("future reminder must remain pending")
	}
}

func TestSweepIsolatesPerReminderFailures(t *testing.T) {
	okDev := sweepDevice(quality.TierGood)
	badDev := sweepDevice(quality.TierGood)
	badDev.Token = "tok-bad"

	bad := dueReminder(badDev.ID, notify.KindOneHour)
	good := dueReminder(okDev.ID, notify.KindOneHour)
	good.ID = 2

	failOnce := &recordFailDispatcher{failFor: badDev.ID}
	res := Run(context.Background(), sweepNow, Deps{
		Reminders: &fakeReminders{pending: []notify.Reminder{bad, good}},
		Devices: &fakeDevices{byID: map[uuid.UUID]*device.Device{
			okDev.ID: okDev, badDev.ID: badDev,
		}},
		Source:     &fakeSource{pred: freshPrediction(70)},
		Dispatcher: failOnce,
	})

	if res.Dispatched != 1 {
		t.Errorf("healthy reminder should dispatch despite sibling failure, got %+v", res)
	}
	if len(res.Errors) != 1 {
		t.Errorf("expected one isolated error, got %v", res.Errors)
	}
}

type recordFailDispatcher struct {
	failFor    uuid.UUID
	dispatched int
}

func (d *recordFailDispatcher) Notify(ctx context.Context, token, title, body string, rec notify.Record) error {
	if rec.DeviceID == d.failFor {
		return errors.New("record write failed")
	}
	d.dispatched++
	return nil
}
