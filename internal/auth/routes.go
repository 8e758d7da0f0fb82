package auth

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/reelkeep/reelkeep/internal/middleware"
	"github.com/reelkeep/reelkeep/internal/token"
)

// RegisterRoutes mounts the auth endpoints on the given group (/api/auth).
// Credential-sensitive endpoints carry tighter per-IP rate limits than the
// global throttle.
func RegisterRoutes(g *echo.Group, h *Handler, tokens *token.Service, svc Service, rdb *redis.Client) {
	g.POST("/register", h.Register, middleware.RateLimit(rdb, "register", 5, time.Minute))
	g.POST("/login", h.Login, middleware.RateLimit(rdb, "login", 10, time.Minute))
	g.POST("/logout", h.Logout)
	g.POST("/forgot-password", h.ForgotPassword, middleware.RateLimit(rdb, "forgot_password", 5, time.Minute))
	g.POST("/reset-password", h.ResetPassword)

	authed := g.Group("", RequireAuth(tokens, svc))
	authed.GET("/me", h.Me)
	authed.POST("/refresh", h.Refresh)
	authed.POST("/change-password", h.ChangePassword)
	authed.PATCH("/profile", h.UpdateProfile)
}
