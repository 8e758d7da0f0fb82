package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authServer tracks how often each endpoint was hit so tests can assert the
// one-shot and serialization guarantees.
type authServer struct {
	srv        *httptest.Server
	meCalls    atomic.Int64
	loginFails bool
	logoutErr  bool
	signedIn   atomic.Bool
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	a := &authServer{}

	mux := http.NewServeMux()
	handleMethods(mux, "/api/auth/me", map[string]http.HandlerFunc{http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
		a.meCalls.Add(1)
		if !a.signedIn.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "User authentication required"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user":    map[string]any{"id": "u1", "name": "Alice"},
		})
	}})
	handleMethods(mux, "/api/auth/login", map[string]http.HandlerFunc{http.MethodPost: func(w http.ResponseWriter, r *http.Request) {
		if a.loginFails {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "Invalid email or password"})
			return
		}
		a.signedIn.Store(true)
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user":    map[string]any{"id": "u1", "name": "Alice"},
		})
	}})
	handleMethods(mux, "/api/auth/logout", map[string]http.HandlerFunc{http.MethodPost: func(w http.ResponseWriter, r *http.Request) {
		if a.logoutErr {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]any{"success": false, "message": "boom"})
			return
		}
		a.signedIn.Store(false)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Logout successful"})
	}})

	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func newAuthState(t *testing.T, srv *authServer) *AuthState {
	t.Helper()
	c, err := New(srv.srv.URL)
	require.NoError(t, err)
	return NewAuthState(c)
}

func TestInitialize_ResolvesSignedOutWithoutError(t *testing.T) {
	srv := newAuthServer(t)
	state := newAuthState(t, srv)

	assert.Equal(t, PhaseIdle, state.Phase())
	assert.True(t, state.Initializing())

	require.NoError(t, state.Initialize(context.Background()))

	assert.Equal(t, PhaseDone, state.Phase())
	assert.False(t, state.Initializing())
	assert.False(t, state.IsAuthenticated())
}

func TestInitialize_RunsOnce(t *testing.T) {
	srv := newAuthServer(t)
	state := newAuthState(t, srv)

	require.NoError(t, state.Initialize(context.Background()))
	require.NoError(t, state.Initialize(context.Background()))
	require.NoError(t, state.Initialize(context.Background()))

	assert.Equal(t, int64(1), srv.meCalls.Load())
}

func TestInitialize_ConcurrentCallsFireOneCheck(t *testing.T) {
	srv := newAuthServer(t)
	state := newAuthState(t, srv)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = state.Initialize(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), srv.meCalls.Load())
}

func TestSignIn_AdoptsLoginResponseWithoutRequery(t *testing.T) {
	srv := newAuthServer(t)
	state := newAuthState(t, srv)

	user, err := state.SignIn(context.Background(), "alice@example.com", "Secret123", false)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, state.IsAuthenticated())
	assert.Equal(t, PhaseDone, state.Phase())

	// The user came from the login response, not an identity round trip.
	assert.Equal(t, int64(0), srv.meCalls.Load())
}

func TestSignIn_FailureLeavesStateSignedOut(t *testing.T) {
	srv := newAuthServer(t)
	srv.loginFails = true
	state := newAuthState(t, srv)

	_, err := state.SignIn(context.Background(), "alice@example.com", "wrong", false)
	require.Error(t, err)
	assert.False(t, state.IsAuthenticated())
}

func TestSignOut_ClearsStateEvenWhenServerFails(t *testing.T) {
	srv := newAuthServer(t)
	state := newAuthState(t, srv)

	_, err := state.SignIn(context.Background(), "alice@example.com", "Secret123", false)
	require.NoError(t, err)

	srv.logoutErr = true
	state.SignOut(context.Background())

	assert.False(t, state.IsAuthenticated())
	assert.Nil(t, state.User())
}

func TestRefresh_PicksUpServerSideChanges(t *testing.T) {
	srv := newAuthServer(t)
	state := newAuthState(t, srv)

	require.NoError(t, state.Initialize(context.Background()))
	assert.False(t, state.IsAuthenticated())

	// Session appears out of band (another tab signed in).
	srv.signedIn.Store(true)
	require.NoError(t, state.Refresh(context.Background()))
	assert.True(t, state.IsAuthenticated())

	// And disappears again.
	srv.signedIn.Store(false)
	require.NoError(t, state.Refresh(context.Background()))
	assert.False(t, state.IsAuthenticated())
}

func TestRefresh_BeforeInitializeRunsTheOneShotCheck(t *testing.T) {
	srv := newAuthServer(t)
	state := newAuthState(t, srv)

	require.NoError(t, state.Refresh(context.Background()))
	assert.Equal(t, PhaseDone, state.Phase())
	assert.Equal(t, int64(1), srv.meCalls.Load())
}
