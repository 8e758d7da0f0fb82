package movies

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/reelkeep/reelkeep/internal/auth"
	"github.com/reelkeep/reelkeep/internal/token"
)

// uploadBodyLimit caps multipart request bodies; a little above the poster
// size cap to leave room for the form fields.
const uploadBodyLimit = "12M"

// RegisterRoutes mounts the movie endpoints on the given group (/api/movies).
// Every route requires an authenticated session.
func RegisterRoutes(g *echo.Group, h *Handler, tokens *token.Service, authSvc auth.Service) {
	g.Use(auth.RequireAuth(tokens, authSvc))

	bodyLimit := echomw.BodyLimit(uploadBodyLimit)

	g.POST("", h.Create, bodyLimit)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update, bodyLimit)
	g.DELETE("/:id", h.Delete)
}
