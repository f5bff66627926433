package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skyglow-app/skyglow-server/internal/api/respond"
	"github.com/skyglow-app/skyglow-server/internal/device"
	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// deviceJSON is the wire shape for device records.
type deviceJSON struct {
	Token              string    `json:"token"`
	Latitude           float64   `json:"lat"`
	Longitude          float64   `json:"lon"`
	LocationMode       string    `json:"location_mode"`
	Timezone           string    `json:"timezone"`
	NotifyMorning      bool      `json:"notify_morning"`
	NotifyHourBefore   bool      `json:"notify_hour_before"`
	NotifyTenMinutes   bool      `json:"notify_ten_minutes"`
	MinQuality         string    `json:"min_quality"`
	LastLocationUpdate time.Time `json:"last_location_update"`
}

func toJSON(d *device.Device) deviceJSON {
	return deviceJSON{
		Token:              d.Token,
		Latitude:           d.Latitude,
		Longitude:          d.Longitude,
		LocationMode:       string(d.LocationMode),
		Timezone:           d.Timezone,
		NotifyMorning:      d.NotifyMorning,
		NotifyHourBefore:   d.NotifyHourBefore,
		NotifyTenMinutes:   d.NotifyTenMinutes,
		MinQuality:         d.MinQuality.String(),
		LastLocationUpdate: d.LastLocationUpdate,
	}
}

type registerRequest struct {
	Token            string  `json:"token"`
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lon"`
	LocationMode     string  `json:"location_mode"`
	Timezone         string  `json:"timezone"`
	NotifyMorning    *bool   `json:"notify_morning"`
	NotifyHourBefore *bool   `json:"notify_hour_before"`
	NotifyTenMinutes *bool   `json:"notify_ten_minutes"`
	MinQuality       string  `json:"min_quality"`
}

// RegisterDevice creates or updates the device for a push token.
// @Summary Register a device
// @Description Creates the device record for a push token, or updates it in place on re-registration.
// @Tags devices
// @Accept json
// @Produce json
// @Param device body registerRequest true "Device registration"
// @Success 200 {object} deviceJSON
// @Failure 400 {object} respond.ErrorResponse
// @Router /devices [post]
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON")
		return
	}
	if req.Token == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_TOKEN", "token is required")
		return
	}

	mode := device.LocationMode(req.LocationMode)
	if mode != device.ModeManual {
		mode = device.ModeAuto
	}
	lat, lon := req.Latitude, req.Longitude
	if mode == device.ModeAuto {
		lat, lon = device.RoundCoord(lat), device.RoundCoord(lon)
	}

	minQuality := quality.TierGood
	if req.MinQuality != "" {
		t, err := quality.ParseTier(req.MinQuality)
		if err != nil {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_QUALITY", err.Error())
			return
		}
		minQuality = t
	}

	d := &device.Device{
		Token:            req.Token,
		Latitude:         lat,
		Longitude:        lon,
		LocationMode:     mode,
		Timezone:         req.Timezone,
		NotifyMorning:    boolOr(req.NotifyMorning, true),
		NotifyHourBefore: boolOr(req.NotifyHourBefore, false),
		NotifyTenMinutes: boolOr(req.NotifyTenMinutes, false),
		MinQuality:       minQuality,
	}

	saved, err := h.devices.Upsert(r.Context(), d)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_ERROR",
			"Failed to save device", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, toJSON(saved))
}

// GetDevice returns the current device snapshot.
// @Summary Get a device
// @Tags devices
// @Produce json
// @Param token path string true "Push token"
// @Success 200 {object} deviceJSON
// @Failure 404 {object} respond.ErrorResponse
// @Router /devices/{token} [get]
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	d, err := h.devices.ByToken(r.Context(), token)
	if errors.Is(err, device.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Unknown device token")
		return
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_ERROR",
			"Failed to load device", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, toJSON(d))
}

type locationRequest struct {
	Latitude     float64 `json:"lat"`
	Longitude    float64 `json:"lon"`
	LocationMode string  `json:"location_mode"`
	Timezone     string  `json:"timezone"`
}

// UpdateLocation writes a new coordinate for the device. Unknown tokens are
// registered on the fly with default preferences.
// @Summary Update device location
// @Tags devices
// @Accept json
// @Produce json
// @Param token path string true "Push token"
// @Param location body locationRequest true "New location"
// @Success 200 {object} deviceJSON
// @Failure 400 {object} respond.ErrorResponse
// @Router /devices/{token}/location [put]
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_COORDS", "Coordinates out of range")
		return
	}

	mode := device.LocationMode(req.LocationMode)
	if mode != device.ModeManual {
		mode = device.ModeAuto
	}
	lat, lon := req.Latitude, req.Longitude
	if mode == device.ModeAuto {
		// GPS coordinates are rounded to ~1.1 km before storage.
		lat, lon = device.RoundCoord(lat), device.RoundCoord(lon)
	}

	d, err := h.devices.UpdateLocation(r.Context(), token, lat, lon, mode, req.Timezone)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_ERROR",
			"Failed to update location", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, toJSON(d))
}

type preferencesRequest struct {
	NotifyMorning    bool   `json:"notify_morning"`
	NotifyHourBefore bool   `json:"notify_hour_before"`
	NotifyTenMinutes bool   `json:"notify_ten_minutes"`
	MinQuality       string `json:"min_quality"`
}

// UpdatePreferences replaces the notification preferences for a device.
// @Summary Update notification preferences
// @Tags devices
// @Accept json
// @Produce json
// @Param token path string true "Push token"
// @Param preferences body preferencesRequest true "New preferences"
// @Success 200 {object} deviceJSON
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /devices/{token}/preferences [put]
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON")
		return
	}

	minQuality, err := quality.ParseTier(req.MinQuality)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_QUALITY", err.Error())
		return
	}

	d, err := h.devices.UpdatePreferences(r.Context(), token, device.Preferences{
		NotifyMorning:    req.NotifyMorning,
		NotifyHourBefore: req.NotifyHourBefore,
		NotifyTenMinutes: req.NotifyTenMinutes,
		MinQuality:       minQuality,
	})
	if errors.Is(err, device.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Unknown device token")
		return
	}
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusInternalServerError, "STORE_ERROR",
			"Failed to update preferences", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, toJSON(d))
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
