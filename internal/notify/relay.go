package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RelayClient posts push messages to an HTTP push-notification relay
// (token + title/body in, delivery status out). Rate limited so a large
// scan batch cannot hammer the relay.
type RelayClient struct {
	httpClient *http.Client
	url        string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewRelayClient creates a relay client. Returns nil when url is empty
// (push delivery disabled); the dispatcher treats a nil Pusher as a no-op.
func NewRelayClient(url string, requestsPerMinute int, logger *slog.Logger) *RelayClient {
	if url == "" {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	rps := float64(requestsPerMinute) / 60.0
	return &RelayClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		url:        url,
		limiter:    rate.NewLimiter(rate.Limit(rps), 5),
		logger:     logger,
	}
}

type relayMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

// Send posts one message to the relay. Non-2xx statuses are errors; the
// caller decides whether to surface them (the dispatcher only logs).
func (c *RelayClient) Send(ctx context.Context, token, title, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	payload, err := json.Marshal(relayMessage{To: token, Title: title, Body: body, Sound: "default"})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("push relay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("push relay returned %d: %s", resp.StatusCode, raw)
	}
	return nil
}
