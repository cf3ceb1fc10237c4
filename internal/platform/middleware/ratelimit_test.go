package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
)

func limitedRequest(t *testing.T, handler echo.HandlerFunc, remoteAddr string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	return rec, handler(e.NewContext(req, rec))
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRateLimit_WithinBurst(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})(okHandler)

	for i := 0; i < 5; i++ {
		rec, err := limitedRequest(t, h, "")
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: X-RateLimit-Limit = %q, want 10", i+1, got)
		}
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})(okHandler)

	for i := 0; i < 2; i++ {
		if _, err := limitedRequest(t, h, ""); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	_, err := limitedRequest(t, h, "")
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("code = %d, want 429", httpErr.Code)
	}
}

func TestRateLimit_RetryAfterHeader(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	if _, err := limitedRequest(t, h, ""); err != nil {
		t.Fatalf("first request: %v", err)
	}

	rec, err := limitedRequest(t, h, "")
	if err == nil {
		t.Fatal("expected rate limit error")
	}

	retryAfter, parseErr := strconv.Atoi(rec.Header().Get("Retry-After"))
	if parseErr != nil {
		t.Fatalf("Retry-After is not an integer: %q", rec.Header().Get("Retry-After"))
	}
	if retryAfter < 1 {
		t.Errorf("Retry-After = %d, want >= 1", retryAfter)
	}
	if remaining := rec.Header().Get("X-RateLimit-Remaining"); remaining != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", remaining)
	}
}

func TestRateLimit_PerClientIsolation(t *testing.T) {
	h := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})(okHandler)

	if _, err := limitedRequest(t, h, "10.0.0.1:1234"); err != nil {
		t.Fatalf("client A first request: %v", err)
	}
	if _, err := limitedRequest(t, h, "10.0.0.1:1234"); err == nil {
		t.Fatal("client A second request: expected rate limit error")
	}
	// Client B has its own bucket.
	if _, err := limitedRequest(t, h, "10.0.0.2:1234"); err != nil {
		t.Fatalf("client B first request: %v", err)
	}
}

func TestRateLimit_DefaultConfig(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	if cfg.RequestsPerSecond != 100 || cfg.BurstSize != 200 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestBucket_RetryAfterWithZeroRate(t *testing.T) {
	b := newBucket(0, 1)
	b.take()
	if ra := b.retryAfter(); ra != 1 {
		t.Errorf("retryAfter = %d, want 1 when nothing refills", ra)
	}
}

func TestBucketMap_ReusesBuckets(t *testing.T) {
	store := newBucketMap(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	b1 := store.bucketFor("key1")
	if b1 == nil {
		t.Fatal("expected non-nil bucket")
	}
	if b2 := store.bucketFor("key1"); b1 != b2 {
		t.Error("expected same bucket instance for same key")
	}
	if b3 := store.bucketFor("key2"); b1 == b3 {
		t.Error("expected different bucket for different key")
	}
}
