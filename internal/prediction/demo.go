package prediction

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// DemoSource is the deterministic offline generator used when no Sunburst
// API key is configured. The same (date, latitude, timezone) inputs always
// produce the same prediction, so repeated fetches on one calendar day are
// stable and the schedulers behave identically to live mode.
type DemoSource struct{}

// NewDemoSource creates the offline fallback source.
func NewDemoSource() *DemoSource {
	return &DemoSource{}
}

// Tier roll boundaries. The roll is uniform in [0,100); percentages are then
// jittered inside the matching band of the demo threshold table.
const (
	demoPoorBelow = 25
	demoFairBelow = 50
	demoGoodBelow = 80
)

// Fetch generates a synthetic prediction. The seed mixes day-of-year with
// the integer latitude so nearby days and places differ, but re-fetching is
// stable within a day.
func (s *DemoSource) Fetch(ctx context.Context, lat, lon float64, date, timezone string) (*Prediction, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}

	rng := rand.New(rand.NewPCG(uint64(day.YearDay()), uint64(math.Floor(math.Abs(lat)))))
	roll := rng.IntN(100)

	var percent float64
	switch {
	case roll < demoPoorBelow:
		percent = float64(5 + rng.IntN(20)) // 5-24
	case roll < demoFairBelow:
		percent = float64(25 + rng.IntN(25)) // 25-49
	case roll < demoGoodBelow:
		percent = float64(50 + rng.IntN(30)) // 50-79
	default:
		percent = float64(80 + rng.IntN(18)) // 80-97
	}

	sunset := demoSunset(day, lat, timezone)
	goldenStart := sunset.Add(-45 * time.Minute)
	blueEnd := sunset.Add(25 * time.Minute)
	cloud := float64(rng.IntN(101))
	azimuth := 270 + 25*seasonalPhase(day, lat)

	return &Prediction{
		Tier:            quality.DemoTable.Classify(percent),
		Percent:         percent,
		SunsetTime:      sunset,
		CloudCover:      &cloud,
		Azimuth:         &azimuth,
		GoldenHourStart: &goldenStart,
		GoldenHourEnd:   &sunset,
		BlueHourStart:   &sunset,
		BlueHourEnd:     &blueEnd,
		IsDemo:          true,
		Table:           quality.DemoTable,
	}, nil
}

// demoSunset approximates the local sunset clock time with a seasonal
// sinusoid around 18:30 and converts it to an instant via the timezone
// database. Unknown timezones fall back to UTC (location defaulting is
// fail-open, unlike the scheduling gate).
func demoSunset(day time.Time, lat float64, timezone string) time.Time {
	amplitude := math.Min(75*math.Abs(lat)/60, 90) // minutes of seasonal swing
	offset := amplitude * seasonalPhase(day, lat)

	minutes := 18*60 + 30 + int(math.Round(offset))
	loc := locationOrUTC(timezone)
	return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc)
}

// seasonalPhase is +1 near the summer solstice and -1 near the winter one,
// with the sign flipped in the southern hemisphere.
func seasonalPhase(day time.Time, lat float64) float64 {
	phase := math.Sin(2 * math.Pi * float64(day.YearDay()-80) / 365.25)
	if lat < 0 {
		phase = -phase
	}
	return phase
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
