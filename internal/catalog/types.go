package catalog

// SearchPage represents one page of the TMDB search API
type SearchPage struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// Movie represents a movie as returned by TMDB search
type Movie struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	OriginalTitle    string  `json:"original_title"`
	Overview         string  `json:"overview"`
	PosterPath       *string `json:"poster_path"`
	BackdropPath     *string `json:"backdrop_path"`
	ReleaseDate      string  `json:"release_date"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	GenreIDs         []int   `json:"genre_ids"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
	OriginalLanguage string  `json:"original_language"`
}

// MovieDetails represents detailed movie information from TMDB
type MovieDetails struct {
	Movie
	Runtime             *int       `json:"runtime"`
	Budget              int64      `json:"budget"`
	Revenue             int64      `json:"revenue"`
	Status              string     `json:"status"`
	Tagline             string     `json:"tagline"`
	Homepage            string     `json:"homepage"`
	IMDbID              *string    `json:"imdb_id"`
	Genres              []Genre    `json:"genres"`
	ProductionCompanies []Company  `json:"production_companies"`
	SpokenLanguages     []Language `json:"spoken_languages"`
}

// Genre represents a movie genre
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company represents a production company
type Company struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	LogoPath      *string `json:"logo_path"`
	OriginCountry string  `json:"origin_country"`
}

// Language represents a spoken language
type Language struct {
	ISO6391     string `json:"iso_639_1"`
	EnglishName string `json:"english_name"`
	Name        string `json:"name"`
}

// ReleaseYear returns the year part of ReleaseDate, or 0 when it is missing.
func (m Movie) ReleaseYear() int {
	return releaseYear(m.ReleaseDate)
}

func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}
