// Package localtime provides device-timezone time arithmetic for the
// scan and sweep schedulers.
//
// Scheduling decisions fail closed: a missing or invalid timezone makes the
// local hour indeterminate and the device is skipped. Display formatting
// fails open: it falls back to UTC so notification copy still renders.
package localtime

import "time"

// Morning scan eligibility window, inclusive local hours. Wide on purpose:
// upstream model data is not always ready at 11:00 sharp, and the scan tick
// is hourly rather than per-minute.
const (
	MorningWindowStart = 11
	MorningWindowEnd   = 16
)

// LocalHour returns the current hour (0-23) in the named IANA timezone.
// ok is false when the timezone is empty or unknown; callers must treat
// that as indeterminate, never as UTC.
func LocalHour(timezone string, now time.Time) (hour int, ok bool) {
	if timezone == "" {
		return 0, false
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return 0, false
	}
	return now.In(loc).Hour(), true
}

// InMorningWindow reports whether now falls inside the device's morning
// scan window. Indeterminate timezones are never in the window.
func InMorningWindow(timezone string, now time.Time) bool {
	hour, ok := LocalHour(timezone, now)
	return ok && hour >= MorningWindowStart && hour <= MorningWindowEnd
}

// LocalDate returns the calendar date (YYYY-MM-DD) in the device timezone.
// Falls back to UTC for unknown timezones so a date is always produced.
func LocalDate(timezone string, now time.Time) string {
	return now.In(locationOrUTC(timezone)).Format("2006-01-02")
}

// StartOfDay returns midnight of the current local day in the device
// timezone, falling back to UTC. Used for same-day notification dedup.
func StartOfDay(timezone string, now time.Time) time.Time {
	loc := locationOrUTC(timezone)
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Clock formats an instant as a local wall-clock time like "7:42 PM",
// falling back to UTC for unknown timezones.
func Clock(t time.Time, timezone string) string {
	return t.In(locationOrUTC(timezone)).Format("3:04 PM")
}

func locationOrUTC(timezone string) *time.Location {
	if timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
