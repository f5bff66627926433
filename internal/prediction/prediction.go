// Package prediction obtains sunset quality predictions for a location and
// date, either from the live Sunburst API or from a deterministic offline
// generator when no API key is configured. Both paths normalize into one
// Prediction shape carrying the threshold table of the source that produced
// it, so classification never mixes scales across sources.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// Fetch failure taxonomy. All of these mean "no data for this tick" to the
// schedulers; none are retried at this layer.
var (
	// ErrNoModelData means the upstream has no model output for the queried
	// date/location. Expected near the forecast horizon, not alarming.
	ErrNoModelData = errors.New("no model data for date/location")
)

// StatusError is an upstream HTTP failure.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Code, e.Body)
}

// Prediction is the normalized result of one fetch. Ephemeral, never
// persisted whole; the schedulers snapshot the fields they need.
type Prediction struct {
	Tier       quality.Tier
	Percent    float64 // 0-100, monotonic with Tier on this source's table
	SunsetTime time.Time

	// Optional enrichment, present only for richer sources.
	CloudCover       *float64 // whole percent
	Azimuth          *float64 // degrees
	GoldenHourStart  *time.Time
	GoldenHourEnd    *time.Time
	BlueHourStart    *time.Time
	BlueHourEnd      *time.Time

	IsDemo bool
	Table  quality.Table
}

// Source fetches a prediction for a coordinate and local calendar date
// (YYYY-MM-DD, computed in the device's timezone). The timezone is used by
// the offline generator to anchor the sunset instant; the live source
// ignores it.
type Source interface {
	Fetch(ctx context.Context, lat, lon float64, date, timezone string) (*Prediction, error)
}

// ForConfig returns the live source when an API key is configured and the
// offline generator otherwise. Absence of a key is not an error; callers can
// distinguish synthetic data via Prediction.IsDemo.
func ForConfig(apiKey, baseURL string, requestsPerMinute int, logger *slog.Logger) Source {
	if apiKey == "" {
		return NewDemoSource()
	}
	return NewSunburstClient(baseURL, apiKey, requestsPerMinute, logger)
}
