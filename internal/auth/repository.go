package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reelkeep/reelkeep/internal/apperror"
)

// UserRepository defines the data access contract for user records.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	UpdateProfile(ctx context.Context, id, name, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// Password reset lifecycle. The token is stored on the user row and is
	// single-use: ConsumeResetToken clears it together with setting the new
	// password hash.
	SetResetToken(ctx context.Context, id, resetToken string, expiresAt time.Time) error
	FindByResetToken(ctx context.Context, resetToken string, now time.Time) (*User, error)
	ConsumeResetToken(ctx context.Context, id, passwordHash string) error
}

// userRepository implements UserRepository with hand-written MariaDB queries.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository backed by the given pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, is_blocked,
	last_login_at, reset_token, reset_token_expires_at, created_at, updated_at`

// scanUser scans a full user row in userColumns order.
func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsBlocked,
		&user.LastLoginAt,
		&user.ResetToken,
		&user.ResetTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user row: %w", err)
	}
	return user, nil
}

// Create inserts a new user row.
func (r *userRepository) Create(ctx context.Context, user *User) error {
	query := `INSERT INTO users (id, name, email, password_hash, role, is_blocked, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsBlocked,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// FindByID retrieves a user by ID. Returns apperror.NotFound if absent.
func (r *userRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// FindByEmail retrieves a user by normalized email.
// Returns apperror.NotFound if absent.
func (r *userRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// EmailTaken reports whether another user already holds the given email.
// excludeID may be empty (registration) or the caller's own ID (profile
// update) so a user can keep their current address.
func (r *userRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? AND id != ?)`

	var taken bool
	if err := r.db.QueryRowContext(ctx, query, email, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("checking email uniqueness: %w", err)
	}
	return taken, nil
}

// UpdateLastLogin stamps the last_login_at column.
func (r *userRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_login_at = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// UpdateProfile sets name and email together with the updated_at stamp.
func (r *userRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	query := `UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, name, email, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("User not found")
	}
	return nil
}

// UpdatePassword sets a new password hash.
func (r *userRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("User not found")
	}
	return nil
}

// SetResetToken stores a reset token and its expiry on the user row,
// replacing any previous token.
func (r *userRepository) SetResetToken(ctx context.Context, id, resetToken string, expiresAt time.Time) error {
	query := `UPDATE users SET reset_token = ?, reset_token_expires_at = ?, updated_at = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, resetToken, expiresAt, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("storing reset token: %w", err)
	}
	return nil
}

// FindByResetToken retrieves the user holding an unexpired reset token.
// Returns apperror.NotFound when the token is unknown or past its expiry.
func (r *userRepository) FindByResetToken(ctx context.Context, resetToken string, now time.Time) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE reset_token = ? AND reset_token_expires_at > ?`
	return scanUser(r.db.QueryRowContext(ctx, query, resetToken, now))
}

// ConsumeResetToken sets the new password hash and clears the reset token in
// one statement, making the token single-use.
func (r *userRepository) ConsumeResetToken(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = ?, reset_token = NULL,
	          reset_token_expires_at = NULL, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("consuming reset token: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("User not found")
	}
	return nil
}
