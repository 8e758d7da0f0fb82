package movies

import "time"

// Movie is a catalog entry. CreatedBy is immutable after creation; only the
// owner or an admin may mutate or delete the record. OwnerName and OwnerEmail
// are populated from a join and never written back.
type Movie struct {
	ID             string
	Title          string
	PublishingYear int
	Poster         string
	CreatedBy      string
	OwnerName      string
	OwnerEmail     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Owner is the embedded owner view returned with each movie.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PublicMovie is the client-facing representation of a movie.
type PublicMovie struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	PublishingYear int       `json:"publishingYear"`
	Poster         string    `json:"poster"`
	CreatedBy      Owner     `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Public returns the client-safe view of the movie.
func (m *Movie) Public() PublicMovie {
	return PublicMovie{
		ID:             m.ID,
		Title:          m.Title,
		PublishingYear: m.PublishingYear,
		Poster:         m.Poster,
		CreatedBy: Owner{
			ID:    m.CreatedBy,
			Name:  m.OwnerName,
			Email: m.OwnerEmail,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// Pagination is the metadata block returned with every list response.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalMovies int  `json:"totalMovies"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
	Limit       int  `json:"limit"`
}

// MovieResponse is the envelope for single-movie endpoints.
type MovieResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Movie   *PublicMovie `json:"movie,omitempty"`
}

// ListResponse is the envelope for the list endpoint.
type ListResponse struct {
	Success    bool          `json:"success"`
	Movies     []PublicMovie `json:"movies"`
	Pagination Pagination    `json:"pagination"`
}
