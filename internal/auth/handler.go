package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reelkeep/reelkeep/internal/apperror"
	"github.com/reelkeep/reelkeep/internal/token"
)

// Handler handles HTTP requests for authentication. Handlers are thin: they
// bind the request, validate it field by field, call the service, manage the
// session cookie, and render the JSON envelope. No business logic lives here.
type Handler struct {
	service Service
	tokens  *token.Service
}

// NewHandler creates a new auth handler.
func NewHandler(service Service, tokens *token.Service) *Handler {
	return &Handler{service: service, tokens: tokens}
}

// Register creates an account and signs the new user in (POST /api/auth/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if err := validateName(req.Name); err != nil {
		return err
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := validatePassword("password", req.Password); err != nil {
		return err
	}

	user, err := h.service.Register(c.Request().Context(), RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	tok, err := h.tokens.Issue(user.ID, false)
	if err != nil {
		return apperror.NewInternal(err)
	}
	h.tokens.Attach(c, tok, false)

	return c.JSON(http.StatusCreated, UserResponse{
		Success: true,
		Message: "User registered successfully",
		User:    user.Public(),
	})
}

// Login authenticates and sets the session cookie (POST /api/auth/login).
// The remember flag selects the longer token lifetime.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if req.Password == "" {
		return apperror.NewValidation("password", "Password is required")
	}

	user, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	tok, err := h.tokens.Issue(user.ID, req.Remember)
	if err != nil {
		return apperror.NewInternal(err)
	}
	h.tokens.Attach(c, tok, req.Remember)

	return c.JSON(http.StatusOK, UserResponse{
		Success: true,
		Message: "Login successful",
		User:    user.Public(),
	})
}

// Logout clears the session cookie (POST /api/auth/logout). Always succeeds,
// even when no session existed.
func (h *Handler) Logout(c echo.Context) error {
	h.tokens.Clear(c)
	return c.JSON(http.StatusOK, UserResponse{
		Success: true,
		Message: "Logout successful",
	})
}

// Me returns the authenticated user's profile (GET /api/auth/me). The user
// was freshly re-read from the store by RequireAuth.
func (h *Handler) Me(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("User not authenticated")
	}

	return c.JSON(http.StatusOK, UserResponse{
		Success: true,
		User:    user.Public(),
	})
}

// Refresh reissues a default-lifetime token (POST /api/auth/refresh).
// A blocked account gets its cookie cleared and a Forbidden response.
func (h *Handler) Refresh(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("User not authenticated")
	}

	active, err := h.service.CheckActive(c.Request().Context(), user.ID)
	if err != nil {
		if apperror.Code(err) == http.StatusForbidden {
			h.tokens.Clear(c)
		}
		return err
	}

	tok, err := h.tokens.Issue(active.ID, false)
	if err != nil {
		return apperror.NewInternal(err)
	}
	h.tokens.Attach(c, tok, false)

	return c.JSON(http.StatusOK, UserResponse{
		Success: true,
		Message: "Token refreshed successfully",
		User:    active.Public(),
	})
}

// ForgotPassword issues a password reset token (POST /api/auth/forgot-password).
// The token is returned in the response body; there is no mailer in this
// deployment.
func (h *Handler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}

	resetToken, err := h.service.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"message":    "Password reset token generated",
		"resetToken": resetToken,
	})
}

// ResetPassword consumes a reset token and signs the user in with the new
// password (POST /api/auth/reset-password).
func (h *Handler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if req.Token == "" {
		return apperror.NewValidation("token", "Reset token is required")
	}
	if err := validatePassword("password", req.Password); err != nil {
		return err
	}
	if req.ConfirmPassword != req.Password {
		return apperror.NewValidation("confirmPassword", "Passwords do not match")
	}

	user, err := h.service.ResetPassword(c.Request().Context(), req.Token, req.Password)
	if err != nil {
		return err
	}

	tok, err := h.tokens.Issue(user.ID, false)
	if err != nil {
		return apperror.NewInternal(err)
	}
	h.tokens.Attach(c, tok, false)

	return c.JSON(http.StatusOK, UserResponse{
		Success: true,
		Message: "Password reset successful",
		User:    user.Public(),
	})
}

// ChangePassword changes the authenticated user's password
// (POST /api/auth/change-password).
func (h *Handler) ChangePassword(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("User not authenticated")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if req.CurrentPassword == "" {
		return apperror.NewValidation("currentPassword", "Current password is required")
	}
	if err := validatePassword("newPassword", req.NewPassword); err != nil {
		return err
	}
	if req.ConfirmPassword != req.NewPassword {
		return apperror.NewValidation("confirmPassword", "Passwords do not match")
	}

	if err := h.service.ChangePassword(c.Request().Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UserResponse{
		Success: true,
		Message: "Password changed successfully",
	})
}

// UpdateProfile updates name and/or email (PATCH /api/auth/profile).
func (h *Handler) UpdateProfile(c echo.Context) error {
	user := CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("User not authenticated")
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("Invalid request body")
	}

	if req.Name == "" && req.Email == "" {
		return apperror.NewBadRequest("At least one field (name or email) must be provided for update")
	}
	if req.Name != "" {
		if err := validateName(req.Name); err != nil {
			return err
		}
	}
	if req.Email != "" {
		if err := validateEmail(req.Email); err != nil {
			return err
		}
	}

	updated, err := h.service.UpdateProfile(c.Request().Context(), user.ID, req.Name, req.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, UserResponse{
		Success: true,
		Message: "Profile updated successfully",
		User:    updated.Public(),
	})
}
