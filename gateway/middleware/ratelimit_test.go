package middleware

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

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"tokens": {RequestsPerMinute: 1, Burst: 1},
	}, nil)
	handler := limiter.Middleware("tokens")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/tokens", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"tokens": {RequestsPerMinute: 1, Burst: 1},
	}, nil)
	handler := limiter.Middleware("tokens")(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/tokens", nil)
		req.Header.Set("X-Forwarded-For", ip+", 192.168.0.1")
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected first request from %s to succeed, got %d", ip, res.Code)
		}
	}
}

func TestRateLimiterIgnoresUnknownKeys(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{}, nil)
	handler := limiter.Middleware("healthz")(okHandler())
	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("request %d: unexpected status %d", i, res.Code)
		}
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"tokens": {RequestsPerMinute: 60, Burst: 1},
	}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("tokens")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/tokens", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if limiter.visitorCount() != 1 {
		t.Fatalf("expected one visitor, got %d", limiter.visitorCount())
	}

	now = now.Add(2 * visitorTTL)
	other := httptest.NewRequest(http.MethodGet, "/v1/tokens", nil)
	other.RemoteAddr = "10.2.2.2:5000"
	handler.ServeHTTP(httptest.NewRecorder(), other)
	if limiter.visitorCount() != 1 {
		t.Fatalf("expected idle visitor to be swept, got %d", limiter.visitorCount())
	}
}
