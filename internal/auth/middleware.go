package auth

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/reelkeep/reelkeep/internal/apperror"
	"github.com/reelkeep/reelkeep/internal/token"
)

// contextKeyUser stores the authenticated user in the Echo context. Other
// packages access it via CurrentUser below.
const contextKeyUser = "auth_user"

// RequireAuth returns middleware that validates the session cookie and
// injects the authenticated user into the request context. The user is
// re-read from the store on every request, so role and block changes take
// effect without re-login.
//
// Missing, invalid, or expired tokens fail Unauthorized; a token whose user
// no longer exists fails NotFound.
func RequireAuth(tokens *token.Service, svc Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := token.FromRequest(c)
			if raw == "" {
				return apperror.NewUnauthorized("User authentication required")
			}

			userID, err := tokens.Verify(raw)
			if err != nil {
				// Stale cookie is useless to the browser; clear it.
				tokens.Clear(c)
				if errors.Is(err, token.ErrExpired) {
					return apperror.NewUnauthorized("Session expired. Please log in again.")
				}
				return apperror.NewUnauthorized("User authentication required")
			}

			user, err := svc.GetByID(c.Request().Context(), userID)
			if err != nil {
				return err
			}

			c.Set(contextKeyUser, user)
			return next(c)
		}
	}
}

// CurrentUser retrieves the authenticated user from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func CurrentUser(c echo.Context) *User {
	user, ok := c.Get(contextKeyUser).(*User)
	if !ok {
		return nil
	}
	return user
}
