package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/details"
	"github.com/marco/movieExplorer/internal/export"
	"github.com/marco/movieExplorer/internal/favorites"
	"github.com/marco/movieExplorer/internal/search"
)

// errQuit is returned by Execute for the quit command.
var errQuit = errors.New("quit")

// App dispatches terminal commands to the search session, the detail view
// and the favorites store.
type App struct {
	search    *search.Session
	details   *details.Fetcher
	favorites *favorites.Store
	out       io.Writer
	verbose   bool
}

// NewApp writes all command output to out.
func NewApp(s *search.Session, d *details.Fetcher, f *favorites.Store, out io.Writer, verbose bool) *App {
	return &App{search: s, details: d, favorites: f, out: out, verbose: verbose}
}

const usage = `Commands:
  search <query>                 search movies by title
  more                           load the next page of results
  clear                          clear search results
  show <id>                      show movie details
  close                          close the detail view
  fav add <id> [rating] [note]   add a movie from results or details
  fav rm <id>                    remove a favorite
  fav toggle <id>                add or remove a favorite
  fav rate <id> <0-5>            rate a favorite (half points allowed)
  fav note <id> <text>           set a favorite's note
  fav list                       list favorites
  fav export <dir>               write favorites as MDX + YAML
  help                           show this help
  quit                           exit
`

// Execute runs one command line. User errors are printed, not returned;
// the only error returned is errQuit.
func (a *App) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "search", "s":
		a.search.Search(ctx, restOf(line, 1))
		a.printSearch(a.search.State())
	case "more", "m":
		if !a.search.LoadMore(ctx) {
			a.println("No more results.")
			return nil
		}
		a.printSearch(a.search.State())
	case "clear":
		a.search.ClearResults()
		a.println("Results cleared.")
	case "show":
		id, ok := a.parseID(args)
		if !ok {
			return nil
		}
		a.details.Fetch(ctx, id)
		a.printDetails(a.details.State())
	case "close":
		a.details.Clear()
	case "fav", "f":
		return a.executeFav(line, args)
	case "help", "?":
		a.print(usage)
	case "quit", "exit", "q":
		return errQuit
	default:
		a.printf("Unknown command %q. Type help for a list of commands.\n", cmd)
	}
	return nil
}

func (a *App) executeFav(line string, args []string) error {
	if len(args) == 0 {
		a.println("Usage: fav add|rm|toggle|rate|note|list|export")
		return nil
	}
	sub, rest := strings.ToLower(args[0]), args[1:]

	switch sub {
	case "list", "ls":
		a.printFavorites(a.favorites.List())

	case "add":
		id, ok := a.parseID(rest)
		if !ok {
			return nil
		}
		movie, ok := a.lookupMovie(id)
		if !ok {
			a.printf("Movie %d is not in the current results. Run show %d first.\n", id, id)
			return nil
		}
		rating := 0.0
		note := ""
		if len(rest) > 1 {
			r, err := strconv.ParseFloat(rest[1], 64)
			if err != nil {
				a.printf("Invalid rating %q.\n", rest[1])
				return nil
			}
			rating = r
			note = restOf(line, 4)
		}
		added, err := a.favorites.Add(movie, rating, note)
		switch {
		case err != nil:
			a.printf("Cannot add: %v.\n", err)
		case added:
			a.printf("♥ Added %s to favorites.\n", movie.Title)
		default:
			a.printf("%s is already a favorite.\n", movie.Title)
		}

	case "rm", "remove":
		id, ok := a.parseID(rest)
		if !ok {
			return nil
		}
		if a.favorites.Remove(id) {
			a.printf("Removed %d from favorites.\n", id)
		} else {
			a.printf("Movie %d is not a favorite.\n", id)
		}

	case "toggle":
		id, ok := a.parseID(rest)
		if !ok {
			return nil
		}
		movie, ok := a.lookupMovie(id)
		if !ok {
			a.printf("Movie %d is not in the current results. Run show %d first.\n", id, id)
			return nil
		}
		if a.favorites.Toggle(movie) {
			a.printf("♥ Added %s to favorites.\n", movie.Title)
		} else {
			a.printf("Removed %s from favorites.\n", movie.Title)
		}

	case "rate":
		id, ok := a.parseID(rest)
		if !ok {
			return nil
		}
		if len(rest) < 2 {
			a.println("Usage: fav rate <id> <0-5>")
			return nil
		}
		r, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			a.printf("Invalid rating %q.\n", rest[1])
			return nil
		}
		a.reportUpdate(id, favorites.FavoriteUpdate{Rating: &r})

	case "note":
		id, ok := a.parseID(rest)
		if !ok {
			return nil
		}
		note := restOf(line, 3)
		a.reportUpdate(id, favorites.FavoriteUpdate{Note: &note})

	case "export":
		if len(rest) == 0 {
			a.println("Usage: fav export <dir>")
			return nil
		}
		paths, err := export.NewWriter(rest[0]).WriteAll(a.favorites.List())
		if err != nil {
			a.printf("Export failed: %v\n", err)
			return nil
		}
		a.printf("Exported %d favorites to %s (%d files).\n", a.favorites.Len(), rest[0], len(paths))

	default:
		a.printf("Unknown fav command %q.\n", sub)
	}
	return nil
}

func (a *App) reportUpdate(id int, u favorites.FavoriteUpdate) {
	ok, err := a.favorites.Update(id, u)
	switch {
	case err != nil:
		a.printf("Cannot update: %v.\n", err)
	case !ok:
		a.printf("Movie %d is not a favorite.\n", id)
	default:
		f, _ := a.favorites.Get(id)
		a.printf("Updated %s: %s\n", f.Title, export.Stars(f.Rating))
	}
}

// lookupMovie finds id in the open detail view, the search results or the
// favorites, in that order.
func (a *App) lookupMovie(id int) (catalog.Movie, bool) {
	if st := a.details.State(); st.Movie != nil && st.Movie.ID == id {
		return st.Movie.Movie, true
	}
	for _, m := range a.search.State().Results {
		if m.ID == id {
			return m, true
		}
	}
	if f, ok := a.favorites.Get(id); ok {
		return catalog.Movie{ID: f.ID, Title: f.Title, PosterPath: f.PosterPath, ReleaseDate: f.ReleaseDate, Overview: f.Overview}, true
	}
	return catalog.Movie{}, false
}

func (a *App) parseID(args []string) (int, bool) {
	if len(args) == 0 {
		a.println("A movie id is required.")
		return 0, false
	}
	id, err := catalog.ParseMovieID(args[0])
	if err != nil {
		a.println(catalog.MsgInvalidMovieID + ".")
		return 0, false
	}
	return id, true
}

// restOf returns line with its first n whitespace-separated words removed,
// keeping the remainder's inner spacing.
func restOf(line string, n int) string {
	s := strings.TrimSpace(line)
	for i := 0; i < n && s != ""; i++ {
		idx := strings.IndexFunc(s, isSpace)
		if idx < 0 {
			return ""
		}
		s = strings.TrimLeftFunc(s[idx:], isSpace)
	}
	return s
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }

func (a *App) print(s string) { _, _ = io.WriteString(a.out, s) }

func (a *App) println(s string) { _, _ = fmt.Fprintln(a.out, s) }

func (a *App) printf(format string, args ...any) { _, _ = fmt.Fprintf(a.out, format, args...) }
