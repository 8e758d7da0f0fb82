package token

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(defaultTTL, rememberTTL time.Duration, secure bool) *Service {
	return NewService([]byte("test-secret-0123456789abcdef0123"), defaultTTL, rememberTTL, secure)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestService(7*24*time.Hour, 30*24*time.Hour, false)

	tok, err := svc.Issue("user-123", false)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	userID, err := svc.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerifyExpired(t *testing.T) {
	// Negative TTL issues a token that is already past expiry.
	svc := newTestService(-time.Minute, 30*24*time.Hour, false)

	tok, err := svc.Issue("user-123", false)
	require.NoError(t, err)

	_, err = svc.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyRememberOutlivesDefault(t *testing.T) {
	// Default window already elapsed, remember window has not. A remember
	// token must still verify while a default one is rejected.
	svc := newTestService(-time.Minute, time.Hour, false)

	short, err := svc.Issue("user-123", false)
	require.NoError(t, err)
	_, err = svc.Verify(short)
	assert.ErrorIs(t, err, ErrExpired)

	long, err := svc.Issue("user-123", true)
	require.NoError(t, err)
	userID, err := svc.Verify(long)
	require.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := newTestService(time.Hour, time.Hour, false)
	verifier := NewService([]byte("a-completely-different-secret!!!"), time.Hour, time.Hour, false)

	tok, err := issuer.Issue("user-123", false)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyGarbage(t *testing.T) {
	svc := newTestService(time.Hour, time.Hour, false)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalid, "token %q", tok)
	}
}

func TestAttachSetsCookieFlags(t *testing.T) {
	e := echo.New()

	tests := []struct {
		name     string
		secure   bool
		remember bool
		wantSite http.SameSite
		wantAge  int
	}{
		{"dev default", false, false, http.SameSiteLaxMode, int((7 * 24 * time.Hour).Seconds())},
		{"prod remember", true, true, http.SameSiteNoneMode, int((30 * 24 * time.Hour).Seconds())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(7*24*time.Hour, 30*24*time.Hour, tt.secure)

			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			tok, err := svc.Issue("user-123", tt.remember)
			require.NoError(t, err)
			svc.Attach(c, tok, tt.remember)

			cookies := rec.Result().Cookies()
			require.Len(t, cookies, 1)
			cookie := cookies[0]

			assert.Equal(t, CookieName, cookie.Name)
			assert.Equal(t, tok, cookie.Value)
			assert.Equal(t, "/", cookie.Path)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, tt.secure, cookie.Secure)
			assert.Equal(t, tt.wantSite, cookie.SameSite)
			assert.Equal(t, tt.wantAge, cookie.MaxAge)
		})
	}
}

func TestClearExpiresCookie(t *testing.T) {
	e := echo.New()
	svc := newTestService(time.Hour, time.Hour, false)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
	svc.Clear(c)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestFromRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "abc"})
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "abc", FromRequest(c))

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Empty(t, FromRequest(c))
}
