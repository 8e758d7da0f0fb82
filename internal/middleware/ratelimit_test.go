package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

func newLimitedEcho(t *testing.T, maxRequests int, window time.Duration) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	}, RateLimit(rdb, "test", maxRequests, window))
	return e, mr
}

func doRequest(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	e, _ := newLimitedEcho(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if rec := doRequest(e, "10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	e, _ := newLimitedEcho(t, 2, time.Minute)

	doRequest(e, "10.0.0.1")
	doRequest(e, "10.0.0.1")

	rec := doRequest(e, "10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimit_CountersArePerIP(t *testing.T) {
	e, _ := newLimitedEcho(t, 1, time.Minute)

	if rec := doRequest(e, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for first IP, got %d", rec.Code)
	}
	if rec := doRequest(e, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for second IP, got %d", rec.Code)
	}
	if rec := doRequest(e, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for first IP over limit, got %d", rec.Code)
	}
}

func TestRateLimit_WindowExpiryResetsCounter(t *testing.T) {
	e, mr := newLimitedEcho(t, 1, time.Minute)

	doRequest(e, "10.0.0.1")
	if rec := doRequest(e, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 inside window, got %d", rec.Code)
	}

	mr.FastForward(61 * time.Second)

	if rec := doRequest(e, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after window expiry, got %d", rec.Code)
	}
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	}, RateLimit(rdb, "test", 1, time.Minute))

	mr.Close()

	if rec := doRequest(e, "10.0.0.1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when limiter unavailable, got %d", rec.Code)
	}
}
