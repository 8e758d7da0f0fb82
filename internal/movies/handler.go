package movies

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/reelkeep/reelkeep/internal/apperror"
	"github.com/reelkeep/reelkeep/internal/auth"
	"github.com/reelkeep/reelkeep/internal/posters"
)

// Handler handles HTTP requests for the movie catalog. Create and Update
// accept multipart forms because of the poster file; everything else is
// plain JSON.
type Handler struct {
	service Service
}

// NewHandler creates a new movie handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create adds a movie with a mandatory poster (POST /api/movies).
func (h *Handler) Create(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("User authentication required")
	}

	input, err := movieForm(c)
	if err != nil {
		return err
	}
	poster, err := posterFile(c)
	if err != nil {
		return err
	}

	movie, err := h.service.Create(c.Request().Context(), user, input, poster)
	if err != nil {
		return err
	}

	public := movie.Public()
	return c.JSON(http.StatusCreated, MovieResponse{
		Success: true,
		Message: "Movie created successfully",
		Movie:   &public,
	})
}

// List returns a page of the catalog (GET /api/movies).
func (h *Handler) List(c echo.Context) error {
	query := ListQuery{Search: c.QueryParam("search")}

	var err error
	if query.PublishingYear, err = intParam(c, "publishingYear"); err != nil {
		return apperror.NewValidation("publishingYear", "Publishing year must be a valid number")
	}
	if query.Page, err = pagingParam(c, "page", "Page"); err != nil {
		return err
	}
	if query.Limit, err = pagingParam(c, "limit", "Limit"); err != nil {
		return err
	}

	list, pagination, err := h.service.List(c.Request().Context(), query)
	if err != nil {
		return err
	}

	// Always marshal as an array, never null.
	public := make([]PublicMovie, 0, len(list))
	for i := range list {
		public = append(public, list[i].Public())
	}

	return c.JSON(http.StatusOK, ListResponse{
		Success:    true,
		Movies:     public,
		Pagination: pagination,
	})
}

// Get returns a single movie (GET /api/movies/:id).
func (h *Handler) Get(c echo.Context) error {
	movie, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	public := movie.Public()
	return c.JSON(http.StatusOK, MovieResponse{
		Success: true,
		Movie:   &public,
	})
}

// Update rewrites a movie, optionally replacing the poster (PUT /api/movies/:id).
func (h *Handler) Update(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("User authentication required")
	}

	input, err := movieForm(c)
	if err != nil {
		return err
	}

	var poster *posters.Upload
	if _, ferr := c.FormFile("poster"); ferr == nil {
		if poster, err = posterFile(c); err != nil {
			return err
		}
	}

	movie, err := h.service.Update(c.Request().Context(), user, c.Param("id"), input, poster)
	if err != nil {
		return err
	}

	public := movie.Public()
	return c.JSON(http.StatusOK, MovieResponse{
		Success: true,
		Message: "Movie updated successfully",
		Movie:   &public,
	})
}

// Delete removes a movie and its poster (DELETE /api/movies/:id).
func (h *Handler) Delete(c echo.Context) error {
	user := auth.CurrentUser(c)
	if user == nil {
		return apperror.NewUnauthorized("User authentication required")
	}

	if err := h.service.Delete(c.Request().Context(), user, c.Param("id")); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MovieResponse{
		Success: true,
		Message: "Movie deleted successfully",
	})
}

// --- Helpers ---

// movieForm reads title and publishingYear from the multipart form.
func movieForm(c echo.Context) (MovieInput, error) {
	yearRaw := c.FormValue("publishingYear")
	if yearRaw == "" {
		return MovieInput{}, apperror.NewValidation("publishingYear", "Publishing year must be a valid number")
	}
	year, err := strconv.Atoi(yearRaw)
	if err != nil {
		return MovieInput{}, apperror.NewValidation("publishingYear", "Publishing year must be a valid number")
	}

	return MovieInput{
		Title:          c.FormValue("title"),
		PublishingYear: year,
	}, nil
}

// posterFile reads the poster part into memory. Returns a validation error
// when the part is missing.
func posterFile(c echo.Context) (*posters.Upload, error) {
	file, err := c.FormFile("poster")
	if err != nil {
		return nil, apperror.NewValidation("poster", "Poster image is required")
	}

	src, err := file.Open()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	return &posters.Upload{
		OriginalName: file.Filename,
		MimeType:     file.Header.Get("Content-Type"),
		Size:         int64(len(data)),
		Bytes:        data,
	}, nil
}

// intParam parses an optional integer query parameter; absent returns zero.
func intParam(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// pagingParam parses an optional page/limit parameter. Absent means "use the
// default", but an explicitly provided value below 1 is rejected rather than
// silently corrected.
func pagingParam(c echo.Context, name, label string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.NewValidation(name, label+" must be a valid number")
	}
	if v < 1 {
		return 0, apperror.NewValidation(name, label+" must be at least 1")
	}
	return v, nil
}
