package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/skyglow-app/skyglow-server/internal/api/respond"
	"github.com/skyglow-app/skyglow-server/internal/cache"
	"github.com/skyglow-app/skyglow-server/internal/localtime"
)

// predictionJSON is the preview wire shape.
type predictionJSON struct {
	Quality         string     `json:"quality"`
	QualityPercent  float64    `json:"quality_percent"`
	SunsetTime      time.Time  `json:"sunset_time"`
	CloudCover      *float64   `json:"cloud_cover,omitempty"`
	Azimuth         *float64   `json:"azimuth,omitempty"`
	GoldenHourStart *time.Time `json:"golden_hour_start,omitempty"`
	GoldenHourEnd   *time.Time `json:"golden_hour_end,omitempty"`
	BlueHourStart   *time.Time `json:"blue_hour_start,omitempty"`
	BlueHourEnd     *time.Time `json:"blue_hour_end,omitempty"`
	IsDemo          bool       `json:"is_demo"`
	Source          string     `json:"source"`
}

// GetPrediction returns today's sunset prediction for a coordinate.
// Responses are cached briefly; scheduler fetches do not go through here.
// @Summary Preview sunset prediction
// @Description Returns the sunset quality prediction for a coordinate and today's local date.
// @Tags prediction
// @Produce json
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param tz query string false "IANA timezone for the local date (defaults to UTC)"
// @Success 200 {object} predictionJSON
// @Failure 400 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /prediction [get]
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_COORDS", "lat and lon query parameters are required")
		return
	}
	timezone := r.URL.Query().Get("tz")

	date := localtime.LocalDate(timezone, time.Now())
	cacheKey := fmt.Sprintf("prediction:%.2f:%.2f:%s", lat, lon, date)
	ttl := cache.TTLPrediction

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteRaw(w, data, etag, ttl, true)
		return
	}

	pred, err := h.source.Fetch(r.Context(), lat, lon, date, timezone)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadGateway, "NO_PREDICTION",
			"No prediction available", err.Error())
		return
	}

	body := predictionJSON{
		Quality:         pred.Tier.String(),
		QualityPercent:  pred.Percent,
		SunsetTime:      pred.SunsetTime,
		CloudCover:      pred.CloudCover,
		Azimuth:         pred.Azimuth,
		GoldenHourStart: pred.GoldenHourStart,
		GoldenHourEnd:   pred.GoldenHourEnd,
		BlueHourStart:   pred.BlueHourStart,
		BlueHourEnd:     pred.BlueHourEnd,
		IsDemo:          pred.IsDemo,
		Source:          pred.Table.Source,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR", "Failed to encode prediction")
		return
	}

	etag := h.cache.Set(cacheKey, raw, ttl)
	respond.WriteRaw(w, raw, etag, ttl, false)
}
