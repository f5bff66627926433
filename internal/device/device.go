// Package device holds the per-installation device record: push token,
// location, timezone, and notification preferences. One record per token;
// re-registration updates in place.
package device

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// ErrNotFound is returned when no device matches the lookup key.
var ErrNotFound = errors.New("device not found")

// LocationMode distinguishes GPS-derived coordinates from a manual pin.
type LocationMode string

const (
	ModeAuto   LocationMode = "auto"
	ModeManual LocationMode = "manual"
)

// Device is one push-capable client installation.
type Device struct {
	ID           uuid.UUID
	Token        string // opaque push-destination token, unique
	Latitude     float64
	Longitude    float64
	LocationMode LocationMode
	Timezone     string // IANA name; empty means unknown

	NotifyMorning    bool
	NotifyHourBefore bool
	NotifyTenMinutes bool
	MinQuality       quality.Tier

	LastLocationUpdate time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Preferences is the mutable notification settings subset.
type Preferences struct {
	NotifyMorning    bool
	NotifyHourBefore bool
	NotifyTenMinutes bool
	MinQuality       quality.Tier
}

// RoundCoord rounds a GPS coordinate to two decimal places (~1.1 km) so the
// stored location cannot pinpoint a user. Manual pins are stored as given.
func RoundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}
