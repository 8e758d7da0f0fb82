// Package client is a Go API client for a reelkeep server. It keeps the
// session cookie in an in-memory jar, mirrors the server's JSON envelope,
// and exposes typed methods for every endpoint. AuthState layers a small
// sign-in state machine on top for UI gating.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// User is the server's public user representation.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Owner identifies the user who created a movie.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Movie is the server's public movie representation.
type Movie struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	PublishingYear int       `json:"publishingYear"`
	Poster         string    `json:"poster"`
	CreatedBy      Owner     `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Pagination is the metadata block returned with movie listings.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalMovies int  `json:"totalMovies"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
	Limit       int  `json:"limit"`
}

// APIError is a non-2xx response decoded from the server's error envelope.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api error %d on field %q: %s", e.Status, e.Field, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Client talks to a reelkeep server. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL (e.g. "http://localhost:8080").
// The session cookie set by login is held in an in-memory jar and sent on
// every subsequent request.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// --- Auth Endpoints ---

// Register creates an account. The server signs the new user in, so the
// session cookie is usable immediately.
func (c *Client) Register(ctx context.Context, name, email, password string) (*User, error) {
	return c.userCall(ctx, http.MethodPost, "/api/auth/register", map[string]any{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(ctx context.Context, email, password string, remember bool) (*User, error) {
	return c.userCall(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    email,
		"password": password,
		"remember": remember,
	})
}

// Logout clears the server-side cookie. Always succeeds on a reachable server.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.userCall(ctx, http.MethodPost, "/api/auth/logout", nil)
	return err
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (*User, error) {
	return c.userCall(ctx, http.MethodGet, "/api/auth/me", nil)
}

// Refresh reissues the session token with the default lifetime.
func (c *Client) Refresh(ctx context.Context) (*User, error) {
	return c.userCall(ctx, http.MethodPost, "/api/auth/refresh", nil)
}

// ForgotPassword requests a password reset token for the email.
func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out struct {
		ResetToken string `json:"resetToken"`
	}
	err := c.call(ctx, http.MethodPost, "/api/auth/forgot-password",
		map[string]any{"email": email}, &out)
	return out.ResetToken, err
}

// ResetPassword consumes a reset token and signs in with the new password.
func (c *Client) ResetPassword(ctx context.Context, token, password string) (*User, error) {
	return c.userCall(ctx, http.MethodPost, "/api/auth/reset-password", map[string]any{
		"token":           token,
		"password":        password,
		"confirmPassword": password,
	})
}

// ChangePassword changes the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	return c.call(ctx, http.MethodPost, "/api/auth/change-password", map[string]any{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
		"confirmPassword": newPassword,
	}, nil)
}

// UpdateProfile updates name and/or email; empty strings leave the field
// unchanged (at least one must be set).
func (c *Client) UpdateProfile(ctx context.Context, name, email string) (*User, error) {
	body := map[string]any{}
	if name != "" {
		body["name"] = name
	}
	if email != "" {
		body["email"] = email
	}
	return c.userCall(ctx, http.MethodPatch, "/api/auth/profile", body)
}

// --- Movie Endpoints ---

// MovieInput carries the writable movie fields for create and update.
type MovieInput struct {
	Title          string
	PublishingYear int
}

// PosterFile is a poster image to upload with a movie.
type PosterFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// ListOptions narrows and pages a movie listing. Zero values are omitted.
type ListOptions struct {
	Search         string
	PublishingYear int
	Page           int
	Limit          int
}

// CreateMovie adds a movie; the poster is mandatory.
func (c *Client) CreateMovie(ctx context.Context, input MovieInput, poster PosterFile) (*Movie, error) {
	return c.movieUpload(ctx, http.MethodPost, "/api/movies", input, &poster)
}

// Movies lists the catalog with optional search, year filter, and paging.
func (c *Client) Movies(ctx context.Context, opts ListOptions) ([]Movie, Pagination, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.PublishingYear != 0 {
		q.Set("publishingYear", strconv.Itoa(opts.PublishingYear))
	}
	if opts.Page != 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit != 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/movies"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Movies     []Movie    `json:"movies"`
		Pagination Pagination `json:"pagination"`
	}
	if err := c.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, Pagination{}, err
	}
	return out.Movies, out.Pagination, nil
}

// Movie returns a single movie by ID.
func (c *Client) Movie(ctx context.Context, id string) (*Movie, error) {
	var out struct {
		Movie *Movie `json:"movie"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/movies/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return out.Movie, nil
}

// UpdateMovie rewrites a movie; pass a nil poster to keep the current one.
func (c *Client) UpdateMovie(ctx context.Context, id string, input MovieInput, poster *PosterFile) (*Movie, error) {
	return c.movieUpload(ctx, http.MethodPut, "/api/movies/"+url.PathEscape(id), input, poster)
}

// DeleteMovie removes a movie and its poster.
func (c *Client) DeleteMovie(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/movies/"+url.PathEscape(id), nil, nil)
}

// --- Plumbing ---

// userCall performs a JSON request whose response envelope carries a user.
func (c *Client) userCall(ctx context.Context, method, path string, body map[string]any) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.call(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// call performs a JSON request and decodes a 2xx response into out. Non-2xx
// responses become *APIError.
func (c *Client) call(ctx context.Context, method, path string, body map[string]any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

// movieUpload performs a multipart request carrying the movie fields and an
// optional poster part.
func (c *Client) movieUpload(ctx context.Context, method, path string, input MovieInput, poster *PosterFile) (*Movie, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("title", input.Title); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	if err := form.WriteField("publishingYear", strconv.Itoa(input.PublishingYear)); err != nil {
		return nil, fmt.Errorf("writing form: %w", err)
	}
	if poster != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="poster"; filename=%q`, poster.Name))
		header.Set("Content-Type", poster.ContentType)
		part, err := form.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("writing poster part: %w", err)
		}
		if _, err := part.Write(poster.Data); err != nil {
			return nil, fmt.Errorf("writing poster part: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var out struct {
		Movie *Movie `json:"movie"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Movie, nil
}

// do executes the request, maps error envelopes, and decodes success bodies.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope struct {
			Message string `json:"message"`
			Field   string `json:"field"`
		}
		if json.Unmarshal(data, &envelope) == nil && envelope.Message != "" {
			apiErr.Message = envelope.Message
			apiErr.Field = envelope.Field
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
