// Package export renders the favorites collection as Markdown/MDX notes with
// YAML frontmatter, plus a single YAML document for the whole collection.
package export

import (
	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/favorites"
)

// Entry is the frontmatter of one exported favorite
type Entry struct {
	ID          int     `yaml:"id"`
	Title       string  `yaml:"title"`
	Slug        string  `yaml:"slug"`
	ReleaseYear int     `yaml:"releaseYear,omitempty"`
	ReleaseDate string  `yaml:"releaseDate,omitempty"`
	Rating      float64 `yaml:"rating"`
	Note        string  `yaml:"note"`
	AddedAt     string  `yaml:"addedAt"`
	PosterURL   string  `yaml:"posterUrl,omitempty"`
	TMDBURL     string  `yaml:"tmdbUrl"`
	Overview    string  `yaml:"-"`
}

// Collection is the whole-collection YAML document
type Collection struct {
	ExportedAt string  `yaml:"exportedAt"`
	Count      int     `yaml:"count"`
	Favorites  []Entry `yaml:"favorites"`
}

// NewEntry converts a favorite into its export form
func NewEntry(f favorites.Favorite, slug string) Entry {
	return Entry{
		ID:          f.ID,
		Title:       f.Title,
		Slug:        slug,
		ReleaseYear: f.ReleaseYear(),
		ReleaseDate: f.ReleaseDate,
		Rating:      f.Rating,
		Note:        f.Note,
		AddedAt:     f.AddedAt,
		PosterURL:   catalog.ImageURL(f.PosterPath, catalog.PosterLarge),
		TMDBURL:     catalog.MovieURL(f.ID),
		Overview:    f.Overview,
	}
}
