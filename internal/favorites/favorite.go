// Package favorites keeps the user's personal movie collection and persists
// it across restarts.
package favorites

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/marco/movieExplorer/internal/catalog"
)

// TimestampLayout is the addedAt format: UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// MaxRating is the highest personal rating; 0 means unrated.
const MaxRating = 5.0

var (
	// ErrInvalidRating rejects ratings outside 0-5 or off the half-point grid.
	ErrInvalidRating = errors.New("rating must be between 0 and 5 in steps of 0.5")
	// ErrInvalidID rejects movies without a positive catalog id.
	ErrInvalidID = errors.New("movie id must be a positive integer")
)

// Favorite is a saved movie. Catalog fields are a snapshot taken when the
// movie was added.
type Favorite struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	PosterPath  *string `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	Rating      float64 `json:"rating"` // 0 = unrated
	Note        string  `json:"note"`
	AddedAt     string  `json:"addedAt"`
}

// AddedTime parses AddedAt.
func (f Favorite) AddedTime() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, f.AddedAt)
}

// ReleaseYear returns the year of ReleaseDate, or 0.
func (f Favorite) ReleaseYear() int {
	return catalog.Movie{ReleaseDate: f.ReleaseDate}.ReleaseYear()
}

// FavoriteUpdate names the mutable fields; nil leaves a field unchanged.
type FavoriteUpdate struct {
	Rating *float64
	Note   *string
}

// ValidateRating reports whether r is a legal rating.
func ValidateRating(r float64) error {
	if math.IsNaN(r) || r < 0 || r > MaxRating || math.Mod(r*2, 1) != 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidRating, r)
	}
	return nil
}

func newFavorite(m catalog.Movie, rating float64, note string, now time.Time) Favorite {
	return Favorite{
		ID:          m.ID,
		Title:       m.Title,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		Overview:    m.Overview,
		Rating:      rating,
		Note:        note,
		AddedAt:     now.UTC().Format(TimestampLayout),
	}
}

// encode serializes the collection as a JSON array; an empty collection is "[]".
func encode(items []Favorite) ([]byte, error) {
	if items == nil {
		items = []Favorite{}
	}
	return json.Marshal(items)
}

// decode parses and validates a stored collection. Any malformed entry
// rejects the whole document.
func decode(data []byte) ([]Favorite, error) {
	var items []Favorite
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse favorites: %w", err)
	}

	seen := make(map[int]struct{}, len(items))
	for i, f := range items {
		if f.ID <= 0 {
			return nil, fmt.Errorf("entry %d: invalid id %d", i, f.ID)
		}
		if _, dup := seen[f.ID]; dup {
			return nil, fmt.Errorf("entry %d: duplicate id %d", i, f.ID)
		}
		seen[f.ID] = struct{}{}

		if err := ValidateRating(f.Rating); err != nil {
			return nil, fmt.Errorf("entry %d (id %d): %w", i, f.ID, err)
		}
	}
	return items, nil
}
