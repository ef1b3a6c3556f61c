package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marco/movieExplorer/internal/api"
	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/credential"
	"github.com/marco/movieExplorer/internal/details"
	"github.com/marco/movieExplorer/internal/favorites"
	"github.com/marco/movieExplorer/internal/favorites/storage"
	"github.com/marco/movieExplorer/internal/proxy"
	"github.com/marco/movieExplorer/internal/search"
)

// fakeTMDB serves a tiny catalog: "Matrix" matches one movie, 603 has details.
func fakeTMDB(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/search/movie" && r.URL.Query().Get("query") == "Matrix":
			_, _ = w.Write([]byte(`{"page":1,"results":[{"id":603,"title":"The Matrix","release_date":"1999-03-30","vote_average":8.2,"poster_path":"/m.jpg"}],"total_pages":1,"total_results":1}`))
		case r.URL.Path == "/search/movie":
			_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
		case r.URL.Path == "/movie/603":
			_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-30","runtime":136,"vote_average":8.2,"vote_count":25000,"budget":63000000,"genres":[{"id":28,"name":"Action"}],"overview":"Neo wakes up.","imdb_id":"tt0133093"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	app  *App
	out  *bytes.Buffer
	favs *favorites.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	upstream := fakeTMDB(t)
	cat := catalog.NewClient(catalog.ClientConfig{Credentials: credential.Static("k"), BaseURL: upstream.URL})
	px := httptest.NewServer(proxy.NewRouter(cat, proxy.Options{BasePath: "/api"}))
	t.Cleanup(px.Close)

	backend, err := storage.Open(storage.KindFile, t.TempDir())
	require.NoError(t, err)
	favs := favorites.Open(favorites.NewBackendStorage(backend), favorites.Options{})
	t.Cleanup(func() { _ = favs.Close() })

	client := api.New(px.URL+"/api", 2*time.Second)
	out := &bytes.Buffer{}
	app := NewApp(search.NewSession(client), details.NewFetcher(client), favs, out, false)
	return &harness{app: app, out: out, favs: favs}
}

func (h *harness) run(t *testing.T, line string) string {
	t.Helper()
	h.out.Reset()
	require.NoError(t, h.app.Execute(context.Background(), line))
	return h.out.String()
}

func TestSearchAndFavorite(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "search Matrix")
	require.Contains(t, out, "Found 1 movies (page 1 of 1)")
	require.Contains(t, out, "603  The Matrix (1999)  8.2/10")

	out = h.run(t, "fav add 603 4.5 great")
	require.Contains(t, out, "Added The Matrix")

	f, ok := h.favs.Get(603)
	require.True(t, ok)
	require.Equal(t, 4.5, f.Rating)
	require.Equal(t, "great", f.Note)
	require.False(t, h.favs.IsFavorite(604))

	out = h.run(t, "fav add 603")
	require.Contains(t, out, "already a favorite")

	out = h.run(t, "search Matrix")
	require.Contains(t, out, "♥      603")
}

func TestSearch_EmptyAndBlank(t *testing.T) {
	h := newHarness(t)

	require.Contains(t, h.run(t, "search zzzzzz"), search.MsgNoResults)
	require.Contains(t, h.run(t, "search   "), search.MsgEmptyQuery)
	require.Contains(t, h.run(t, "more"), "No more results.")
}

func TestShowDetails(t *testing.T) {
	h := newHarness(t)

	out := h.run(t, "show 603")
	require.Contains(t, out, "The Matrix (1999)")
	require.Contains(t, out, "Runtime:  2h 16m")
	require.Contains(t, out, "Budget:   $63,000,000")
	require.Contains(t, out, "IMDb:     https://www.imdb.com/title/tt0133093")

	// the open detail view is enough to add a favorite
	require.Contains(t, h.run(t, "fav toggle 603"), "Added")
	require.Contains(t, h.run(t, "fav toggle 603"), "Removed")

	require.Contains(t, h.run(t, "show 999"), "Movie not found")
	require.Contains(t, h.run(t, "show abc"), "Invalid movie ID")
}

func TestFavCommands(t *testing.T) {
	h := newHarness(t)
	h.run(t, "search Matrix")
	h.run(t, "fav add 603")

	require.Contains(t, h.run(t, "fav rate 603 4"), "★★★★ (4/5)")
	require.Contains(t, h.run(t, "fav rate 603 9"), "Cannot update")
	require.Contains(t, h.run(t, "fav note 603 watch  again"), "Updated")
	f, _ := h.favs.Get(603)
	require.Equal(t, "watch  again", f.Note)
	require.Equal(t, 4.0, f.Rating)

	require.Contains(t, h.run(t, "fav rate 42 3"), "not a favorite")
	require.Contains(t, h.run(t, "fav add 42"), "not in the current results")

	out := h.run(t, "fav list")
	require.Contains(t, out, "1 favorites")
	require.Contains(t, out, "watch  again")

	dir := filepath.Join(t.TempDir(), "export")
	require.Contains(t, h.run(t, "fav export "+dir), "Exported 1 favorites")
	_, err := os.Stat(filepath.Join(dir, "the-matrix-1999.mdx"))
	require.NoError(t, err)

	require.Contains(t, h.run(t, "fav rm 603"), "Removed 603")
	require.Contains(t, h.run(t, "fav list"), "No favorites yet.")
}

func TestExecute_QuitAndUnknown(t *testing.T) {
	h := newHarness(t)

	require.True(t, errors.Is(h.app.Execute(context.Background(), "quit"), errQuit))
	require.Contains(t, h.run(t, "dance"), "Unknown command")
	require.True(t, strings.HasPrefix(h.run(t, "help"), "Commands:"))
	require.Empty(t, h.run(t, "   "))
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestExecute_OutputFailureIsNotReturned(t *testing.T) {
	h := newHarness(t)
	h.app.out = brokenWriter{}

	for _, line := range []string{"help", "search Matrix", "fav list", "dance"} {
		require.NoError(t, h.app.Execute(context.Background(), line), line)
	}
	require.ErrorIs(t, h.app.Execute(context.Background(), "quit"), errQuit)
}

func TestRestOf(t *testing.T) {
	require.Equal(t, "great  movie", restOf("fav add 603 4.5 great  movie", 4))
	require.Equal(t, "", restOf("fav add 603", 4))
	require.Equal(t, "The Matrix", restOf("  search   The Matrix", 1))
}

func TestFormatMoney(t *testing.T) {
	require.Equal(t, "$63,000,000", formatMoney(63000000))
	require.Equal(t, "$999", formatMoney(999))
	require.Equal(t, "$1,000", formatMoney(1000))
}
