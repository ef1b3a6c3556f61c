package catalog

import "fmt"

const imageBaseURL = "https://image.tmdb.org/t/p"

// Poster sizes
const (
	PosterSmall    = "w185"
	PosterMedium   = "w342"
	PosterLarge    = "w500"
	PosterOriginal = "original"
)

// Backdrop sizes
const (
	BackdropSmall    = "w300"
	BackdropMedium   = "w780"
	BackdropLarge    = "w1280"
	BackdropOriginal = "original"
)

// ImageURL builds a TMDB image URL for path at the given size. A nil or
// empty path yields "".
func ImageURL(path *string, size string) string {
	if path == nil || *path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", imageBaseURL, size, *path)
}

// MovieURL is the public TMDB page of a movie.
func MovieURL(id int) string {
	return fmt.Sprintf("https://www.themoviedb.org/movie/%d", id)
}
