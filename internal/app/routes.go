package app

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reelkeep/reelkeep/internal/auth"
	"github.com/reelkeep/reelkeep/internal/movies"
)

// RegisterRoutes builds each feature's repository/service/handler chain from
// the shared dependencies and mounts everything under /api. This is the
// single place where all routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for Docker health monitoring. Verifies the two
	// backing stores so a dead pool flips the container unhealthy.
	e.GET("/api/health", func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := a.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "down"})
		}
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "redis": "down"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Poster images are served directly off disk.
	e.Static("/uploads/posters", a.Config.Upload.PosterPath)

	// --- Feature Routes ---

	authRepo := auth.NewUserRepository(a.DB)
	authSvc := auth.NewService(authRepo)
	authHandler := auth.NewHandler(authSvc, a.Tokens)
	auth.RegisterRoutes(e.Group("/api/auth"), authHandler, a.Tokens, authSvc, a.Redis)

	movieRepo := movies.NewMovieRepository(a.DB)
	movieSvc := movies.NewService(movieRepo, a.Posters)
	movieHandler := movies.NewHandler(movieSvc)
	movies.RegisterRoutes(e.Group("/api/movies"), movieHandler, a.Tokens, authSvc)
}
