package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelkeep/reelkeep/internal/apperror"
)

// resetTokenTTL is how long a password reset token stays valid.
const resetTokenTTL = 10 * time.Minute

// resetTokenBytes is the number of random bytes in a reset token
// (hex-encoded to twice as many characters).
const resetTokenBytes = 20

// Service defines the business logic contract for authentication. Handlers
// call these methods -- they never touch the repository directly.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*User, error)
	Login(ctx context.Context, input LoginInput) (*User, error)

	// GetByID re-reads the user from the store so role and block changes
	// take effect without re-login.
	GetByID(ctx context.Context, id string) (*User, error)

	// CheckActive verifies the identity still exists and is not blocked.
	// Used by token refresh. Fails NotFound or Forbidden.
	CheckActive(ctx context.Context, id string) (*User, error)

	ForgotPassword(ctx context.Context, email string) (resetToken string, err error)
	ResetPassword(ctx context.Context, resetToken, password string) (*User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UpdateProfile(ctx context.Context, userID, name, email string) (*User, error)
}

// RegisterInput is the validated input for creating a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the validated input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// service implements Service with bcrypt hashing.
type service struct {
	repo UserRepository
}

// NewService creates the auth service.
func NewService(repo UserRepository) Service {
	return &service{repo: repo}
}

// Register creates a new user account. Email uniqueness is checked on the
// normalized (lowercased) address, which makes the check case-insensitive.
func (s *service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	email := NormalizeEmail(input.Email)

	taken, err := s.repo.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}
	if taken {
		return nil, apperror.NewConflict("email", "User already exists with this email")
	}

	hash, err := hashPassword(input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	now := time.Now().UTC()
	user := &User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login authenticates a user by email and password. Unknown email and wrong
// password produce the same response so the caller cannot tell which
// credential was wrong. Blocked accounts are rejected after the password
// check so the block status is only revealed to someone holding valid
// credentials.
func (s *service) Login(ctx context.Context, input LoginInput) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(input.Email))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, invalidCredentials()
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	if !verifyPassword(user.PasswordHash, input.Password) {
		return nil, invalidCredentials()
	}

	if user.IsBlocked {
		return nil, apperror.NewForbidden("Account has been suspended. Please contact support.")
	}

	// Last-login stamp is non-critical; a failure must not fail the login.
	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		slog.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, nil
}

// GetByID re-reads the user from the store.
func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// CheckActive verifies the identity behind a session still exists and is
// not blocked.
func (s *service) CheckActive(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked {
		return nil, apperror.NewForbidden("Account has been suspended")
	}
	return user, nil
}

// ForgotPassword generates a reset token for the given email. Unknown
// addresses get NotFound, which leaks account existence; the API contract
// requires this response shape.
func (s *service) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperror.IsNotFound(err) {
			notFound := apperror.NewNotFound("No user found with this email address")
			notFound.Field = "email"
			return "", notFound
		}
		return "", apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	resetToken, err := generateResetToken()
	if err != nil {
		return "", apperror.NewInternal(fmt.Errorf("generating reset token: %w", err))
	}

	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, resetToken, expiresAt); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("storing reset token: %w", err))
	}

	slog.Info("password reset token issued", slog.String("user_id", user.ID))
	return resetToken, nil
}

// ResetPassword consumes a reset token: the token must match a stored value
// and be unexpired, and is cleared together with setting the new password.
func (s *service) ResetPassword(ctx context.Context, resetToken, password string) (*User, error) {
	user, err := s.repo.FindByResetToken(ctx, resetToken, time.Now().UTC())
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewValidation("token", "Invalid or expired reset token")
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding reset token: %w", err))
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	if err := s.repo.ConsumeResetToken(ctx, user.ID, hash); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("consuming reset token: %w", err))
	}

	slog.Info("password reset", slog.String("user_id", user.ID))
	return user, nil
}

// ChangePassword requires the current password to match and the new one to
// differ from it.
func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if !verifyPassword(user.PasswordHash, currentPassword) {
		return apperror.NewValidation("currentPassword", "Current password is incorrect")
	}
	if currentPassword == newPassword {
		return apperror.NewValidation("newPassword", "New password must be different from current password")
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// UpdateProfile updates name and/or email. An email change re-checks
// uniqueness against every other account.
func (s *service) UpdateProfile(ctx context.Context, userID, name, email string) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	newName := user.Name
	if name != "" {
		newName = strings.TrimSpace(name)
	}

	newEmail := user.Email
	if email != "" {
		newEmail = NormalizeEmail(email)
		if newEmail != user.Email {
			taken, err := s.repo.EmailTaken(ctx, newEmail, user.ID)
			if err != nil {
				return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
			}
			if taken {
				return nil, apperror.NewConflict("email", "Email already exists")
			}
		}
	}

	if err := s.repo.UpdateProfile(ctx, user.ID, newName, newEmail); err != nil {
		return nil, err
	}

	user.Name = newName
	user.Email = newEmail
	return user, nil
}

// --- Helpers ---

// invalidCredentials is the uniform 401 for unknown email or wrong password.
func invalidCredentials() *apperror.AppError {
	err := apperror.NewUnauthorized("Invalid email or password")
	err.Field = "credentials"
	return err
}

// hashPassword creates a bcrypt hash of the given password.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// verifyPassword checks a plaintext password against a bcrypt hash.
func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// generateResetToken creates a cryptographically random hex-encoded token.
func generateResetToken() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
