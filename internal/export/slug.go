package export

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	hyphenRuns   = regexp.MustCompile(`-+`)
)

// GenerateSlug creates a URL-safe slug from title and year
func GenerateSlug(title string, year int) string {
	slug := strings.ToLower(title)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = nonSlugChars.ReplaceAllString(slug, "")
	slug = hyphenRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if year > 0 {
		if slug == "" {
			return strconv.Itoa(year)
		}
		slug = slug + "-" + strconv.Itoa(year)
	}
	return slug
}

// slugSet hands out unique slugs; a clash gets the movie id appended.
type slugSet map[string]struct{}

func (s slugSet) claim(base string, id int) string {
	if base == "" {
		base = "movie"
	}
	slug := base
	if _, taken := s[slug]; taken {
		slug = base + "-" + strconv.Itoa(id)
	}
	s[slug] = struct{}{}
	return slug
}
