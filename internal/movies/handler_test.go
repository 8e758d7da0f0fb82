package movies

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/reelkeep/reelkeep/internal/auth"
	"github.com/reelkeep/reelkeep/internal/posters"
)

// stubService implements Service for handler tests; only List is exercised.
type stubService struct {
	listFn func(ctx context.Context, query ListQuery) ([]Movie, Pagination, error)
}

func (s *stubService) Create(ctx context.Context, owner *auth.User, input MovieInput, poster *posters.Upload) (*Movie, error) {
	return nil, nil
}

func (s *stubService) Get(ctx context.Context, id string) (*Movie, error) {
	return nil, nil
}

func (s *stubService) List(ctx context.Context, query ListQuery) ([]Movie, Pagination, error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return nil, Pagination{CurrentPage: 1, Limit: 10}, nil
}

func (s *stubService) Update(ctx context.Context, actor *auth.User, id string, input MovieInput, poster *posters.Upload) (*Movie, error) {
	return nil, nil
}

func (s *stubService) Delete(ctx context.Context, actor *auth.User, id string) error {
	return nil
}

func listContext(t *testing.T, rawQuery string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/movies?"+rawQuery, nil)
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

// Absent paging parameters fall back to defaults, but explicitly provided
// values below 1 are a client error, not something to silently correct.
func TestList_RejectsExplicitZeroPage(t *testing.T) {
	h := NewHandler(&stubService{})

	err := h.List(listContext(t, "page=0"))
	appErr := assertAppError(t, err, 400)
	if appErr.Field != "page" {
		t.Errorf("expected field page, got %q", appErr.Field)
	}
}

func TestList_RejectsNegativeLimit(t *testing.T) {
	h := NewHandler(&stubService{})

	err := h.List(listContext(t, "limit=-5"))
	appErr := assertAppError(t, err, 400)
	if appErr.Field != "limit" {
		t.Errorf("expected field limit, got %q", appErr.Field)
	}
}

func TestList_RejectsNonNumericPage(t *testing.T) {
	h := NewHandler(&stubService{})

	err := h.List(listContext(t, "page=abc"))
	appErr := assertAppError(t, err, 400)
	if appErr.Field != "page" {
		t.Errorf("expected field page, got %q", appErr.Field)
	}
}

func TestList_AbsentPagingUsesDefaults(t *testing.T) {
	var got ListQuery
	h := NewHandler(&stubService{
		listFn: func(ctx context.Context, query ListQuery) ([]Movie, Pagination, error) {
			got = query
			return nil, Pagination{CurrentPage: 1, Limit: 10}, nil
		},
	})

	if err := h.List(listContext(t, "search=dune")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Page != 0 || got.Limit != 0 {
		t.Errorf("expected zero paging values passed through for defaulting, got %+v", got)
	}
	if got.Search != "dune" {
		t.Errorf("expected search dune, got %q", got.Search)
	}
}
