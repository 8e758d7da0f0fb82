package movies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/reelkeep/reelkeep/internal/apperror"
)

// ListFilter narrows and pages the movie listing. Search matches the title as
// a case-insensitive substring; PublishingYear of zero means no year filter.
type ListFilter struct {
	Search         string
	PublishingYear int
	Offset         int
	Limit          int
}

// MovieRepository defines the data access contract for movie records.
type MovieRepository interface {
	Create(ctx context.Context, movie *Movie) error
	FindByID(ctx context.Context, id string) (*Movie, error)

	// TitleTaken reports whether the owner already has a movie with this
	// title. excludeID may be empty (create) or the record's own ID (update).
	TitleTaken(ctx context.Context, ownerID, title, excludeID string) (bool, error)

	// List returns a page of movies newest-created-first, plus the total
	// match count for pagination.
	List(ctx context.Context, filter ListFilter) ([]Movie, int, error)

	Update(ctx context.Context, movie *Movie) error
	Delete(ctx context.Context, id string) error
}

// movieRepository implements MovieRepository with hand-written MariaDB queries.
type movieRepository struct {
	db *sql.DB
}

// NewMovieRepository creates a new movie repository backed by the given pool.
func NewMovieRepository(db *sql.DB) MovieRepository {
	return &movieRepository{db: db}
}

// movieColumns joins users so every read carries the owner's name and email.
const movieColumns = `m.id, m.title, m.publishing_year, m.poster, m.created_by,
	u.name, u.email, m.created_at, m.updated_at`

const movieFrom = ` FROM movies m JOIN users u ON u.id = m.created_by`

func scanMovie(scanner interface{ Scan(...any) error }) (*Movie, error) {
	movie := &Movie{}
	err := scanner.Scan(
		&movie.ID,
		&movie.Title,
		&movie.PublishingYear,
		&movie.Poster,
		&movie.CreatedBy,
		&movie.OwnerName,
		&movie.OwnerEmail,
		&movie.CreatedAt,
		&movie.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NewNotFound("Movie not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scanning movie row: %w", err)
	}
	return movie, nil
}

// Create inserts a new movie row.
func (r *movieRepository) Create(ctx context.Context, movie *Movie) error {
	query := `INSERT INTO movies (id, title, publishing_year, poster, created_by, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		movie.ID,
		movie.Title,
		movie.PublishingYear,
		movie.Poster,
		movie.CreatedBy,
		movie.CreatedAt,
		movie.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting movie: %w", err)
	}
	return nil
}

// FindByID retrieves a movie by ID. Returns apperror.NotFound if absent.
func (r *movieRepository) FindByID(ctx context.Context, id string) (*Movie, error) {
	query := `SELECT ` + movieColumns + movieFrom + ` WHERE m.id = ?`
	return scanMovie(r.db.QueryRowContext(ctx, query, id))
}

// titleTakenQuery compares with the binary collation so the check is a
// case-sensitive exact match: "Dune" and "DUNE" are different titles. The
// LIKE search keeps the column's case-insensitive collation.
const titleTakenQuery = `SELECT EXISTS(
	SELECT 1 FROM movies WHERE created_by = ? AND title = ? COLLATE utf8mb4_bin AND id != ?)`

// TitleTaken reports whether the owner already has another movie with the
// exact title.
func (r *movieRepository) TitleTaken(ctx context.Context, ownerID, title, excludeID string) (bool, error) {
	var taken bool
	if err := r.db.QueryRowContext(ctx, titleTakenQuery, ownerID, title, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("checking title uniqueness: %w", err)
	}
	return taken, nil
}

// List returns a page of movies newest-first with the total match count.
// Listing is catalog-wide, not scoped to the caller.
func (r *movieRepository) List(ctx context.Context, filter ListFilter) ([]Movie, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filter.Search != "" {
		where += ` AND m.title LIKE ?`
		args = append(args, "%"+escapeLike(filter.Search)+"%")
	}
	if filter.PublishingYear != 0 {
		where += ` AND m.publishing_year = ?`
		args = append(args, filter.PublishingYear)
	}

	var total int
	countQuery := `SELECT COUNT(*)` + movieFrom + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting movies: %w", err)
	}

	query := `SELECT ` + movieColumns + movieFrom + where +
		` ORDER BY m.created_at DESC, m.id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing movies: %w", err)
	}
	defer rows.Close()

	var list []Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *movie)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating movie rows: %w", err)
	}
	return list, total, nil
}

// Update rewrites the mutable columns of a movie row. The updated_at stamp
// comes from the model so the stored row and the returned JSON agree.
func (r *movieRepository) Update(ctx context.Context, movie *Movie) error {
	query := `UPDATE movies SET title = ?, publishing_year = ?, poster = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		movie.Title,
		movie.PublishingYear,
		movie.Poster,
		movie.UpdatedAt,
		movie.ID,
	)
	if err != nil {
		return fmt.Errorf("updating movie: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("Movie not found")
	}
	return nil
}

// Delete removes a movie row.
func (r *movieRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting movie: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return apperror.NewNotFound("Movie not found")
	}
	return nil
}

// escapeLike neutralizes LIKE metacharacters so a user search for "100%" does
// not turn into a wildcard.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
