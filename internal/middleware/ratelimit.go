package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns middleware that limits requests per IP to maxRequests
// within the given window, backed by Redis so every instance of an endpoint
// group (login, register, forgot-password) shares one counter store.
// Returns 429 when exceeded.
//
// Uses a fixed-window counter: INCR on a per-IP key, EXPIRE on first hit.
// If Redis is unreachable the request is allowed through -- rate limiting
// is protection, not a correctness requirement.
func RateLimit(rdb *redis.Client, name string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("ratelimit:%s:%s", name, c.RealIP())
			ctx := c.Request().Context()

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("name", name),
					slog.Any("error", err),
				)
				return next(c)
			}

			// First hit in this window starts the clock.
			if count == 1 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					slog.Warn("setting rate limit expiry failed",
						slog.String("name", name),
						slog.Any("error", err),
					)
				}
			}

			if count > int64(maxRequests) {
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"success": false,
					"message": "Too many requests. Please try again later.",
				})
			}

			return next(c)
		}
	}
}
