package prediction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skyglow-app/skyglow-server/internal/quality"
)

func newTestClient(handler http.HandlerFunc) (*SunburstClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewSunburstClient(srv.URL, "test-key", 600, nil), srv
}

func TestSunburstFetchNormalizes(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("type"); got != "sunset" {
			t.Errorf("type = %q", got)
		}
		// quality_percent and cloud_cover arrive as 0-1 fractions.
		fmt.Fprint(w, `{"features":[{"properties":{
			"quality":"great",
			"quality_percent":0.72,
			"valid_at":"2025-06-15T02:31:00Z",
			"cloud_cover":0.35,
			"azimuth":299.4,
			"golden_hour":{"start":"2025-06-15T01:50:00Z","end":"2025-06-15T02:31:00Z"}
		}}]}`)
	})
	defer srv.Close()

	p, err := c.Fetch(context.Background(), 37.0, -122.0, "2025-06-14", "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if p.Tier != quality.TierGreat {
		t.Errorf("tier = %v, want Great", p.Tier)
	}
	if p.Percent != 72 {
		t.Errorf("percent = %v, want 72 (fraction normalized)", p.Percent)
	}
	if p.CloudCover == nil || *p.CloudCover != 35 {
		t.Errorf("cloud cover = %v, want 35", p.CloudCover)
	}
	if p.IsDemo {
		t.Error("live prediction must not be marked demo")
	}
	if p.Table.Source != "sunburst" {
		t.Errorf("table source = %q, want sunburst", p.Table.Source)
	}
	if p.GoldenHourStart == nil || p.GoldenHourEnd == nil {
		t.Error("golden hour window should be populated")
	}
}

func TestSunburstWholePercentPassesThrough(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features":[{"properties":{
			"quality":"fair","quality_percent":31,"valid_at":"2025-06-15T02:31:00Z"}}]}`)
	})
	defer srv.Close()

	p, err := c.Fetch(context.Background(), 37.0, -122.0, "2025-06-14", "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.Percent != 31 {
		t.Errorf("percent = %v, want 31", p.Percent)
	}
}

func TestSunburstMissingModelData(t *testing.T) {
	t.Run("404", func(t *testing.T) {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		defer srv.Close()
		_, err := c.Fetch(context.Background(), 37.0, -122.0, "2026-01-01", "")
		if !errors.Is(err, ErrNoModelData) {
			t.Errorf("err = %v, want ErrNoModelData", err)
		}
	})

	t.Run("empty features", func(t *testing.T) {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"features":[]}`)
		})
		defer srv.Close()
		_, err := c.Fetch(context.Background(), 37.0, -122.0, "2026-01-01", "")
		if !errors.Is(err, ErrNoModelData) {
			t.Errorf("err = %v, want ErrNoModelData", err)
		}
	})

	t.Run("missing percent", func(t *testing.T) {
		c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"features":[{"properties":{"quality":"good","valid_at":"2025-06-15T02:31:00Z"}}]}`)
		})
		defer srv.Close()
		_, err := c.Fetch(context.Background(), 37.0, -122.0, "2026-01-01", "")
		if !errors.Is(err, ErrNoModelData) {
			t.Errorf("err = %v, want ErrNoModelData", err)
		}
	})
}

func TestSunburstUnknownLabelIsHardFailure(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features":[{"properties":{
			"quality":"stupendous","quality_percent":0.9,"valid_at":"2025-06-15T02:31:00Z"}}]}`)
	})
	defer srv.Close()

	if _, err := c.Fetch(context.Background(), 37.0, -122.0, "2025-06-14", ""); err == nil {
		t.Error("unrecognized quality label must fail, not default")
	}
}

func TestSunburstHTTPError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	})
	defer srv.Close()

	_, err := c.Fetch(context.Background(), 37.0, -122.0, "2025-06-14", "")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
		t.Errorf("err = %v, want StatusError 502", err)
	}
}
