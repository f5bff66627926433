package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

func TestTimingMiddlewareSetsHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	TimingMiddleware(okHandler()).ServeHTTP(rec, requestFrom("10.0.0.1:1234"))

	if rec.Header().Get("X-Process-Time") == "" {
		t.Error("X-Process-Time header missing")
	}
}

func TestRateLimitSingleRequestWindowStillAdmits(t *testing.T) {
	// A window allowing one request must admit that one request; the burst
	// floor guarantees the bucket never starts empty.
	h := RateLimitMiddleware(1, time.Minute)(okHandler())

	first := httptest.NewRecorder()
	h.ServeHTTP(first, requestFrom("10.0.0.1:1234"))
	if first.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	h.ServeHTTP(second, requestFrom("10.0.0.1:1234"))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", second.Header().Get("Retry-After"))
	}
}

func TestRateLimitIsPerClient(t *testing.T) {
	h := RateLimitMiddleware(1, time.Minute)(okHandler())

	first := httptest.NewRecorder()
	h.ServeHTTP(first, requestFrom("10.0.0.1:1234"))

	other := httptest.NewRecorder()
	h.ServeHTTP(other, requestFrom("10.0.0.2:1234"))
	if other.Code != http.StatusOK {
		t.Errorf("different client = %d, want 200", other.Code)
	}
}

func TestBurstFloor(t *testing.T) {
	cases := []struct {
		requests int
		want     int
	}{
		{1, 1},
		{3, 1},
		{4, 1},
		{100, 25},
	}
	for _, tc := range cases {
		if got := burstFor(tc.requests); got != tc.want {
			t.Errorf("burstFor(%d) = %d, want %d", tc.requests, got, tc.want)
		}
	}
}
