package client

import (
	"context"
	"log/slog"
	"sync"
)

// Phase is the lifecycle of the initial identity check. It is an explicit
// state value, not a boolean flag, so a caller can distinguish "never ran"
// from "running" from "finished".
type Phase int

const (
	// PhaseIdle means the identity check has not started.
	PhaseIdle Phase = iota
	// PhaseLoading means an identity check is in flight.
	PhaseLoading
	// PhaseDone means the identity check finished, successfully or not.
	PhaseDone
)

// AuthState tracks whether the client currently has a signed-in user. It is
// the source of truth for UI gating: sign-out clears it even when the server
// call fails, and sign-in sets it straight from the login response without a
// second query.
//
// The identity check (Initialize) runs at most once; manual Refresh calls
// are serialized with it and with each other.
type AuthState struct {
	client *Client

	mu    sync.Mutex
	phase Phase
	user  *User

	// op serializes identity checks so a manual refresh never races the
	// initial one.
	op sync.Mutex
}

// NewAuthState creates an auth state bound to the given client.
func NewAuthState(c *Client) *AuthState {
	return &AuthState{client: c}
}

// Initialize performs the one-shot identity check. The first call asks the
// server who the session cookie belongs to; every later call returns
// immediately. An unauthenticated response is not an error: it resolves the
// state to signed-out.
func (a *AuthState) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.phase != PhaseIdle {
		a.mu.Unlock()
		return nil
	}
	a.phase = PhaseLoading
	a.mu.Unlock()

	err := a.check(ctx)

	a.mu.Lock()
	a.phase = PhaseDone
	a.mu.Unlock()
	return err
}

// Refresh re-runs the identity check on demand. Serialized against
// Initialize and other Refresh calls; never runs before the first
// Initialize has been started.
func (a *AuthState) Refresh(ctx context.Context) error {
	a.mu.Lock()
	if a.phase == PhaseIdle {
		a.mu.Unlock()
		return a.Initialize(ctx)
	}
	a.mu.Unlock()

	return a.check(ctx)
}

// check queries the server identity endpoint and updates the user. Holding
// op for the duration is what serializes concurrent checks.
func (a *AuthState) check(ctx context.Context) error {
	a.op.Lock()
	defer a.op.Unlock()

	user, err := a.client.Me(ctx)
	if err != nil {
		a.setUser(nil)
		if apiErr, ok := err.(*APIError); ok && (apiErr.Status == 401 || apiErr.Status == 404) {
			// No valid session. A resolved signed-out state, not a failure.
			return nil
		}
		return err
	}

	a.setUser(user)
	return nil
}

// SignIn authenticates and adopts the user from the login response directly,
// without re-querying the identity endpoint.
func (a *AuthState) SignIn(ctx context.Context, email, password string, remember bool) (*User, error) {
	user, err := a.client.Login(ctx, email, password, remember)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.user = user
	if a.phase == PhaseIdle {
		a.phase = PhaseDone
	}
	a.mu.Unlock()
	return user, nil
}

// SignOut clears the local state first and then tells the server. A failed
// server call leaves the client signed out anyway; the cookie just dies at
// its natural expiry.
func (a *AuthState) SignOut(ctx context.Context) {
	a.setUser(nil)

	if err := a.client.Logout(ctx); err != nil {
		slog.Warn("server logout failed, local state cleared", slog.Any("error", err))
	}
}

// User returns the signed-in user, or nil.
func (a *AuthState) User() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.user
}

// IsAuthenticated reports whether a user is signed in.
func (a *AuthState) IsAuthenticated() bool {
	return a.User() != nil
}

// Phase returns the lifecycle phase of the initial identity check.
func (a *AuthState) Phase() Phase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Initializing reports whether the initial identity check has not finished
// yet. UI gating waits on this before deciding between signed-in and
// signed-out views.
func (a *AuthState) Initializing() bool {
	return a.Phase() != PhaseDone
}

func (a *AuthState) setUser(user *User) {
	a.mu.Lock()
	a.user = user
	a.mu.Unlock()
}
