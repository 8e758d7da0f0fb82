// Package token implements the stateless session token service. Tokens are
// HMAC-signed JWTs carrying the user ID and an expiry; validity is purely a
// function of signature and expiry, nothing is tracked server-side. The
// token travels in an HTTP-only cookie the browser cannot read or tamper
// with.
//
// Known limitation: because tokens are not tracked server-side, logout only
// removes the client's copy of the cookie. A captured token stays valid
// until its natural expiry.
package token

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// CookieName is the HTTP cookie carrying the session token.
const CookieName = "reelkeep_session"

var (
	// ErrInvalid is returned when a token's signature does not match or its
	// payload is malformed.
	ErrInvalid = errors.New("invalid session token")

	// ErrExpired is returned when a token is past its embedded expiry.
	ErrExpired = errors.New("session token expired")
)

// Service issues and verifies signed session tokens and manages their cookie
// transport. The signing secret is injected at construction; no package-level
// key exists.
type Service struct {
	secret      []byte
	defaultTTL  time.Duration
	rememberTTL time.Duration

	// secureCookies enables the Secure flag and SameSite=None so the cookie
	// can travel on credentialed cross-site requests. Off in local
	// development where the client talks to plain http.
	secureCookies bool
}

// NewService creates a token service. defaultTTL applies to ordinary logins,
// rememberTTL when the user asked to be remembered.
func NewService(secret []byte, defaultTTL, rememberTTL time.Duration, secureCookies bool) *Service {
	return &Service{
		secret:        secret,
		defaultTTL:    defaultTTL,
		rememberTTL:   rememberTTL,
		secureCookies: secureCookies,
	}
}

// TTL returns the session lifetime for the given remember choice.
func (s *Service) TTL(remember bool) time.Duration {
	if remember {
		return s.rememberTTL
	}
	return s.defaultTTL
}

// Issue produces a signed token with subject = userID and an expiry chosen
// by the remember flag.
func (s *Service) Issue(userID string, remember bool) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL(remember))),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns the embedded
// user ID. Fails with ErrExpired when past expiry, ErrInvalid for anything
// else (bad signature, malformed payload, wrong algorithm).
func (s *Service) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpired
		}
		return "", ErrInvalid
	}
	if claims.Subject == "" {
		return "", ErrInvalid
	}
	return claims.Subject, nil
}

// Attach sets the session cookie on the response. The cookie is HTTP-only,
// scoped to the root path, and lives as long as the token itself.
func (s *Service) Attach(c echo.Context, tokenStr string, remember bool) {
	c.SetCookie(s.cookie(tokenStr, int(s.TTL(remember).Seconds())))
}

// Clear overwrites the session cookie with an empty value and a negative
// max-age, causing immediate browser-side deletion. Same flag profile as
// issuance so the browser matches the original cookie.
func (s *Service) Clear(c echo.Context) {
	c.SetCookie(s.cookie("", -1))
}

// FromRequest reads the raw session token from the request cookie. Returns
// the empty string when the cookie is absent.
func FromRequest(c echo.Context) string {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	return cookie.Value
}

// cookie builds the session cookie with the transport flags. In production
// the browser client lives on another origin, so the cookie must be Secure
// with SameSite=None to be sent cross-site; local development uses Lax over
// plain http.
func (s *Service) cookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.secureCookies {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: sameSite,
	}
}
