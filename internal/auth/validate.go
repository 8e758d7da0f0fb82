package auth

import (
	"regexp"
	"strings"

	"github.com/reelkeep/reelkeep/internal/apperror"
)

// Validation mirrors the documented request schemas: the first violated rule
// is returned with the offending field name and a human-readable message.

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z\s]+$`)
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// NormalizeEmail trims and lowercases an email address. All storage and
// lookups use the normalized form, which is what makes email uniqueness
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateName checks the display name: required, 3-20 characters, letters
// and spaces only.
func validateName(name string) *apperror.AppError {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return apperror.NewValidation("name", "Name is required")
	case len(name) < 3:
		return apperror.NewValidation("name", "Name must be at least 3 characters long")
	case len(name) > 20:
		return apperror.NewValidation("name", "Name cannot exceed 20 characters")
	case !nameRe.MatchString(name):
		return apperror.NewValidation("name", "Name can only contain letters and spaces")
	}
	return nil
}

// validateEmail checks presence and shape of an email address.
func validateEmail(email string) *apperror.AppError {
	email = strings.TrimSpace(email)
	switch {
	case email == "":
		return apperror.NewValidation("email", "Email is required")
	case !emailRe.MatchString(email):
		return apperror.NewValidation("email", "Please provide a valid email address")
	}
	return nil
}

// validatePassword enforces the complexity policy: 6-50 characters with at
// least one uppercase letter, one lowercase letter, and one digit. The field
// parameter names the request field in the error ("password", "newPassword").
func validatePassword(field, password string) *apperror.AppError {
	switch {
	case password == "":
		return apperror.NewValidation(field, "Password is required")
	case len(password) < 6:
		return apperror.NewValidation(field, "Password must be at least 6 characters long")
	case len(password) > 50:
		return apperror.NewValidation(field, "Password cannot exceed 50 characters")
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit {
		return apperror.NewValidation(field,
			"Password must contain at least one uppercase letter, one lowercase letter, and one number")
	}
	return nil
}
