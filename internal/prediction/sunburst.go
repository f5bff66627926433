package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

// DefaultBaseURL is the production Sunburst API endpoint.
const DefaultBaseURL = "https://api.sunburst.sunsetwx.com/v1"

// SunburstClient fetches live sunset quality predictions.
// Auth is a bearer token; rate limiting is a token bucket, same as the
// other upstream clients in this codebase.
type SunburstClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewSunburstClient creates a rate-limited Sunburst API client.
func NewSunburstClient(baseURL, apiKey string, requestsPerMinute int, logger *slog.Logger) *SunburstClient {
	if logger == nil {
		logger = slog.Default()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := float64(requestsPerMinute) / 60.0
	return &SunburstClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// qualityResponse is the subset of the Sunburst payload this service
// consumes. quality_percent and cloud_cover may arrive as 0-1 fractions.
type qualityResponse struct {
	Features []struct {
		Properties struct {
			Quality        string   `json:"quality"`
			QualityPercent *float64 `json:"quality_percent"`
			ValidAt        string   `json:"valid_at"`
			CloudCover     *float64 `json:"cloud_cover"`
			Azimuth        *float64 `json:"azimuth"`
			GoldenHour     *window  `json:"golden_hour"`
			BlueHour       *window  `json:"blue_hour"`
		} `json:"properties"`
	} `json:"features"`
}

type window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Fetch requests the sunset prediction for a coordinate and date.
// The timezone parameter is unused by the live source.
func (c *SunburstClient) Fetch(ctx context.Context, lat, lon float64, date, timezone string) (*Prediction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("geo", fmt.Sprintf("%.4f,%.4f", lat, lon))
	params.Set("date", date)
	params.Set("type", "sunset")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quality?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request /quality: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoModelData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(body, 200)}
	}

	var payload qualityResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Features) == 0 {
		return nil, ErrNoModelData
	}

	return c.normalize(payload)
}

// normalize maps the raw payload into a Prediction. An unrecognized quality
// label is a hard failure — guessing a default would misclassify silently.
func (c *SunburstClient) normalize(payload qualityResponse) (*Prediction, error) {
	props := payload.Features[0].Properties

	tier, err := quality.ParseTier(props.Quality)
	if err != nil {
		return nil, err
	}
	if props.QualityPercent == nil {
		return nil, ErrNoModelData
	}

	sunset, err := time.Parse(time.RFC3339, props.ValidAt)
	if err != nil {
		return nil, fmt.Errorf("parse valid_at %q: %w", props.ValidAt, err)
	}

	p := &Prediction{
		Tier:       tier,
		Percent:    asPercent(*props.QualityPercent),
		SunsetTime: sunset,
		Azimuth:    props.Azimuth,
		Table:      quality.LiveTable,
	}
	if props.CloudCover != nil {
		cc := asPercent(*props.CloudCover)
		p.CloudCover = &cc
	}
	if props.GoldenHour != nil {
		p.GoldenHourStart, p.GoldenHourEnd = parseWindow(props.GoldenHour)
	}
	if props.BlueHour != nil {
		p.BlueHourStart, p.BlueHourEnd = parseWindow(props.BlueHour)
	}
	return p, nil
}

// asPercent normalizes values that may arrive as 0-1 fractions. Exactly 1.0
// is read as the fraction (100%), not a literal 1%: the two are
// indistinguishable, and a true 1% reading would never clear any
// notification threshold anyway.
func asPercent(v float64) float64 {
	if v <= 1.0 {
		return v * 100
	}
	return v
}

func parseWindow(w *window) (start, end *time.Time) {
	if s, err := time.Parse(time.RFC3339, w.Start); err == nil {
		start = &s
	}
	if e, err := time.Parse(time.RFC3339, w.End); err == nil {
		end = &e
	}
	return start, end
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
