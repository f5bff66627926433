package localtime

import (
	"testing"
	"time"
)

// noon UTC on a fixed date, so local hours are predictable per zone.
var noonUTC = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestLocalHour(t *testing.T) {
	cases := []struct {
		timezone string
		wantHour int
		wantOK   bool
	}{
		{"UTC", 12, true},
		{"America/New_York", 8, true}, // EDT, UTC-4
		{"Asia/Tokyo", 21, true},      // UTC+9
		{"", 0, false},
		{"Invalid/Zone", 0, false},
	}
	for _, tc := range cases {
		hour, ok := LocalHour(tc.timezone, noonUTC)
		if ok != tc.wantOK || (ok && hour != tc.wantHour) {
			t.Errorf("LocalHour(%q) = (%d, %v), want (%d, %v)",
				tc.timezone, hour, ok, tc.wantHour, tc.wantOK)
		}
	}
}

func TestInMorningWindow(t *testing.T) {
	// 12:00 local in London during BST is 11:00 UTC.
	in := time.Date(2025, time.June, 15, 11, 0, 0, 0, time.UTC)
	if !InMorningWindow("Europe/London", in) {
		t.Error("noon local should be inside the morning window")
	}

	// 17:00 local is just past the window.
	out := time.Date(2025, time.June, 15, 16, 0, 0, 0, time.UTC)
	if InMorningWindow("Europe/London", out) {
		t.Error("17:00 local should be outside the morning window")
	}

	// Boundary hours are inclusive.
	for _, hour := range []int{MorningWindowStart, MorningWindowEnd} {
		now := time.Date(2025, time.June, 15, hour, 30, 0, 0, time.UTC)
		if !InMorningWindow("UTC", now) {
			t.Errorf("hour %d should be inside the window", hour)
		}
	}

	if InMorningWindow("Invalid/Zone", noonUTC) {
		t.Error("indeterminate timezone must never pass the gate")
	}
}

func TestLocalDateCrossesMidnight(t *testing.T) {
	// 01:00 UTC June 16 is still June 15 evening in Los Angeles.
	now := time.Date(2025, time.June, 16, 1, 0, 0, 0, time.UTC)
	if got := LocalDate("America/Los_Angeles", now); got != "2025-06-15" {
		t.Errorf("LocalDate = %q, want 2025-06-15", got)
	}
	if got := LocalDate("Invalid/Zone", now); got != "2025-06-16" {
		t.Errorf("LocalDate UTC fallback = %q, want 2025-06-16", got)
	}
}

func TestStartOfDay(t *testing.T) {
	got := StartOfDay("America/New_York", noonUTC)
	loc, _ := time.LoadLocation("America/New_York")
	want := time.Date(2025, time.June, 15, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
	if !noonUTC.After(got) {
		t.Error("start of day should precede the reference instant")
	}
}

func TestClockFallsBackToUTC(t *testing.T) {
	sunset := time.Date(2025, time.June, 15, 19, 42, 0, 0, time.UTC)
	if got := Clock(sunset, "Invalid/Zone"); got != "7:42 PM" {
		t.Errorf("Clock fallback = %q, want 7:42 PM", got)
	}
}
