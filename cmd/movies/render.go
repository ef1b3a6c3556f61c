package main

import (
	"fmt"
	"strings"

	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/details"
	"github.com/marco/movieExplorer/internal/export"
	"github.com/marco/movieExplorer/internal/favorites"
	"github.com/marco/movieExplorer/internal/search"
)

func (a *App) printSearch(st search.State) {
	switch st.Status {
	case search.StatusError, search.StatusEmpty:
		a.printf("%s\n", st.Message)
		if len(st.Results) == 0 {
			return
		}
	case search.StatusIdle:
		return
	}

	a.printf("Found %d movies (page %d of %d)\n", st.TotalResults, st.Page, st.TotalPages)
	for _, m := range st.Results {
		heart := " "
		if a.favorites.IsFavorite(m.ID) {
			heart = "♥"
		}
		a.printf("%s %8d  %s%s  %s\n", heart, m.ID, m.Title, yearSuffix(m.ReleaseYear()), voteLabel(m.VoteAverage))
		if a.verbose {
			if u := catalog.ImageURL(m.PosterPath, catalog.PosterSmall); u != "" {
				a.printf("             %s\n", u)
			}
		}
	}
	if st.HasMore() {
		a.println("Type more for the next page.")
	}
}

func (a *App) printDetails(st details.State) {
	if st.Error != "" {
		a.printf("%s\n", st.Error)
		return
	}
	m := st.Movie
	if m == nil {
		return
	}

	a.printf("%s%s\n", m.Title, yearSuffix(m.ReleaseYear()))
	if m.Tagline != "" {
		a.printf("  %q\n", m.Tagline)
	}
	a.printf("  Rating:   %s (%d votes)\n", voteLabel(m.VoteAverage), m.VoteCount)
	if m.Runtime != nil && *m.Runtime > 0 {
		a.printf("  Runtime:  %s\n", formatRuntime(*m.Runtime))
	}
	if len(m.Genres) > 0 {
		names := make([]string, len(m.Genres))
		for i, g := range m.Genres {
			names[i] = g.Name
		}
		a.printf("  Genres:   %s\n", strings.Join(names, ", "))
	}
	if m.Status != "" {
		a.printf("  Status:   %s\n", m.Status)
	}
	if m.Budget > 0 {
		a.printf("  Budget:   %s\n", formatMoney(m.Budget))
	}
	if m.Revenue > 0 {
		a.printf("  Revenue:  %s\n", formatMoney(m.Revenue))
	}
	if u := catalog.ImageURL(m.PosterPath, catalog.PosterLarge); u != "" {
		a.printf("  Poster:   %s\n", u)
	}
	if a.verbose {
		if u := catalog.ImageURL(m.BackdropPath, catalog.BackdropLarge); u != "" {
			a.printf("  Backdrop: %s\n", u)
		}
	}
	a.printf("  TMDB:     %s\n", catalog.MovieURL(m.ID))
	if m.IMDbID != nil && *m.IMDbID != "" {
		a.printf("  IMDb:     https://www.imdb.com/title/%s\n", *m.IMDbID)
	}
	if m.Overview != "" {
		a.printf("\n%s\n", m.Overview)
	}
	if f, ok := a.favorites.Get(m.ID); ok {
		a.printf("\n♥ Favorite, %s", export.Stars(f.Rating))
		if f.Note != "" {
			a.printf(": %s", f.Note)
		}
		a.println("")
	}
}

func (a *App) printFavorites(items []favorites.Favorite) {
	if len(items) == 0 {
		a.println("No favorites yet.")
		return
	}
	a.printf("%d favorites\n", len(items))
	for _, f := range items {
		a.printf("  %8d  %s%s  %s\n", f.ID, f.Title, yearSuffix(f.ReleaseYear()), export.Stars(f.Rating))
		if f.Note != "" {
			a.printf("            %s\n", f.Note)
		}
	}
}

func yearSuffix(year int) string {
	if year == 0 {
		return ""
	}
	return fmt.Sprintf(" (%d)", year)
}

func voteLabel(v float64) string {
	if v <= 0 {
		return "not rated"
	}
	return fmt.Sprintf("%.1f/10", v)
}

func formatRuntime(minutes int) string {
	h, m := minutes/60, minutes%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// formatMoney renders whole dollars with thousands separators.
func formatMoney(n int64) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}
