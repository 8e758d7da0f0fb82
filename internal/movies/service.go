package movies

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reelkeep/reelkeep/internal/apperror"
	"github.com/reelkeep/reelkeep/internal/auth"
	"github.com/reelkeep/reelkeep/internal/posters"
)

const (
	minPublishingYear = 1800
	maxSearchLength   = 100
	defaultPage       = 1
	defaultLimit      = 10
	maxLimit          = 100
)

// MovieInput carries the writable movie fields. Both are required on create
// and update.
type MovieInput struct {
	Title          string
	PublishingYear int
}

// ListQuery holds the parsed list parameters before defaults are applied.
type ListQuery struct {
	Search         string
	PublishingYear int
	Page           int
	Limit          int
}

// Service defines the business logic contract for the movie catalog.
type Service interface {
	// Create stores the poster and inserts the movie. The poster is mandatory;
	// if the insert fails the stored file is removed so no orphan remains.
	Create(ctx context.Context, owner *auth.User, input MovieInput, poster *posters.Upload) (*Movie, error)

	Get(ctx context.Context, id string) (*Movie, error)
	List(ctx context.Context, query ListQuery) ([]Movie, Pagination, error)

	// Update rewrites title and year and optionally replaces the poster.
	// Only the owner or an admin may update.
	Update(ctx context.Context, actor *auth.User, id string, input MovieInput, poster *posters.Upload) (*Movie, error)

	// Delete removes the record and its poster files. Only the owner or an
	// admin may delete.
	Delete(ctx context.Context, actor *auth.User, id string) error
}

type service struct {
	repo  MovieRepository
	store posters.Store
}

// NewService creates the movie service.
func NewService(repo MovieRepository, store posters.Store) Service {
	return &service{repo: repo, store: store}
}

// Create validates input, stores the poster, and inserts the record. Title
// uniqueness is scoped to the owner, so two users can both have "Dune".
func (s *service) Create(ctx context.Context, owner *auth.User, input MovieInput, poster *posters.Upload) (*Movie, error) {
	if err := validateInput(&input); err != nil {
		return nil, err
	}
	if poster == nil {
		return nil, apperror.NewValidation("poster", "Poster image is required")
	}

	taken, err := s.repo.TitleTaken(ctx, owner.ID, input.Title, "")
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking title: %w", err))
	}
	if taken {
		return nil, apperror.NewConflict("title", "Movie with this title already exists in your collection")
	}

	filename, err := s.store.Save(ctx, *poster)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	movie := &Movie{
		ID:             uuid.NewString(),
		Title:          input.Title,
		PublishingYear: input.PublishingYear,
		Poster:         filename,
		CreatedBy:      owner.ID,
		OwnerName:      owner.Name,
		OwnerEmail:     owner.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, movie); err != nil {
		// The record never existed, so the stored file must not either.
		s.store.Delete(filename)
		return nil, apperror.NewInternal(fmt.Errorf("creating movie: %w", err))
	}

	slog.Info("movie created",
		slog.String("movie_id", movie.ID),
		slog.String("user_id", owner.ID),
	)
	return movie, nil
}

// Get retrieves a single movie by ID.
func (s *service) Get(ctx context.Context, id string) (*Movie, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// List returns a page of the catalog with pagination metadata. The listing is
// catalog-wide: every authenticated user sees all movies.
func (s *service) List(ctx context.Context, query ListQuery) ([]Movie, Pagination, error) {
	if err := validateQuery(&query); err != nil {
		return nil, Pagination{}, err
	}

	list, total, err := s.repo.List(ctx, ListFilter{
		Search:         query.Search,
		PublishingYear: query.PublishingYear,
		Offset:         (query.Page - 1) * query.Limit,
		Limit:          query.Limit,
	})
	if err != nil {
		return nil, Pagination{}, apperror.NewInternal(fmt.Errorf("listing movies: %w", err))
	}

	totalPages := (total + query.Limit - 1) / query.Limit
	return list, Pagination{
		CurrentPage: query.Page,
		TotalPages:  totalPages,
		TotalMovies: total,
		HasNext:     query.Page < totalPages,
		HasPrev:     query.Page > 1,
		Limit:       query.Limit,
	}, nil
}

// Update rewrites the movie and optionally swaps the poster. The old poster
// file is removed only after the row update succeeds.
func (s *service) Update(ctx context.Context, actor *auth.User, id string, input MovieInput, poster *posters.Upload) (*Movie, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	movie, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, movie) {
		return nil, apperror.NewForbidden("Not authorized to update this movie")
	}

	if err := validateInput(&input); err != nil {
		return nil, err
	}

	if input.Title != movie.Title {
		taken, err := s.repo.TitleTaken(ctx, movie.CreatedBy, input.Title, movie.ID)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("checking title: %w", err))
		}
		if taken {
			return nil, apperror.NewConflict("title", "Movie with this title already exists in your collection")
		}
	}

	oldPoster := movie.Poster
	newPoster := ""
	if poster != nil {
		newPoster, err = s.store.Save(ctx, *poster)
		if err != nil {
			return nil, err
		}
		movie.Poster = newPoster
	}

	movie.Title = input.Title
	movie.PublishingYear = input.PublishingYear
	movie.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, movie); err != nil {
		if newPoster != "" {
			s.store.Delete(newPoster)
		}
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("updating movie: %w", err))
	}

	if newPoster != "" && oldPoster != "" {
		s.store.Delete(oldPoster)
	}

	slog.Info("movie updated",
		slog.String("movie_id", movie.ID),
		slog.String("user_id", actor.ID),
	)
	return movie, nil
}

// Delete removes the record and then its poster files.
func (s *service) Delete(ctx context.Context, actor *auth.User, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	movie, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, movie) {
		return apperror.NewForbidden("Not authorized to delete this movie")
	}

	if err := s.repo.Delete(ctx, movie.ID); err != nil {
		if apperror.IsNotFound(err) {
			return err
		}
		return apperror.NewInternal(fmt.Errorf("deleting movie: %w", err))
	}

	if movie.Poster != "" {
		s.store.Delete(movie.Poster)
	}

	slog.Info("movie deleted",
		slog.String("movie_id", movie.ID),
		slog.String("user_id", actor.ID),
	)
	return nil
}

// --- Helpers ---

// canModify reports whether the actor may mutate the movie: owner or admin.
func canModify(actor *auth.User, movie *Movie) bool {
	return movie.CreatedBy == actor.ID || actor.IsAdmin()
}

// validateID rejects anything that is not a UUID before it reaches the
// database.
func validateID(id string) *apperror.AppError {
	if uuid.Validate(id) != nil {
		return apperror.NewBadRequest("Invalid movie ID format")
	}
	return nil
}

// validateInput checks title and year, trimming the title in place.
func validateInput(input *MovieInput) *apperror.AppError {
	input.Title = strings.TrimSpace(input.Title)
	maxYear := time.Now().Year() + 5

	switch {
	case input.Title == "":
		return apperror.NewValidation("title", "Movie title is required")
	case len(input.Title) > 200:
		return apperror.NewValidation("title", "Movie title cannot exceed 200 characters")
	case input.PublishingYear < minPublishingYear:
		return apperror.NewValidation("publishingYear", "Publishing year cannot be before 1800")
	case input.PublishingYear > maxYear:
		return apperror.NewValidation("publishingYear",
			fmt.Sprintf("Publishing year cannot be more than %d", maxYear))
	}
	return nil
}

// validateQuery applies list defaults and bounds, trimming the search term.
func validateQuery(query *ListQuery) *apperror.AppError {
	query.Search = strings.TrimSpace(query.Search)
	if len(query.Search) > maxSearchLength {
		return apperror.NewValidation("search", "Search term cannot exceed 100 characters")
	}

	if query.PublishingYear != 0 {
		maxYear := time.Now().Year() + 5
		if query.PublishingYear < minPublishingYear || query.PublishingYear > maxYear {
			return apperror.NewValidation("publishingYear",
				fmt.Sprintf("Publishing year must be between %d and %d", minPublishingYear, maxYear))
		}
	}

	if query.Page < 1 {
		query.Page = defaultPage
	}
	if query.Limit < 1 {
		query.Limit = defaultLimit
	}
	if query.Limit > maxLimit {
		return apperror.NewValidation("limit", "Limit cannot exceed 100")
	}
	return nil
}
