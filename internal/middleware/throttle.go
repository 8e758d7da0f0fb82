package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// visitor tracks a token-bucket limiter for a single client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle returns middleware that applies a per-IP token-bucket limit to
// every request. This is the coarse, application-wide throttle; the Redis
// RateLimit middleware adds tighter per-endpoint limits on top of it.
// rps is the sustained requests per second, burst the allowed burst size.
func Throttle(rps float64, burst int) echo.MiddlewareFunc {
	var mu sync.Mutex
	visitors := make(map[string]*visitor)

	// Evict idle entries so the map doesn't grow unbounded.
	go func() {
		for {
			time.Sleep(10 * time.Minute)
			mu.Lock()
			now := time.Now()
			for ip, v := range visitors {
				if now.Sub(v.lastSeen) > 10*time.Minute {
					delete(visitors, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			mu.Lock()
			v, ok := visitors[ip]
			if !ok {
				v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				visitors[ip] = v
			}
			v.lastSeen = time.Now()
			mu.Unlock()

			if !v.limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"success": false,
					"message": "Too many requests. Please try again later.",
				})
			}

			return next(c)
		}
	}
}
