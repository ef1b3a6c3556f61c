package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marco/movieExplorer/internal/credential"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, key string, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		Credentials: credential.Static(key),
		BaseURL:     srv.URL + "/",
		Timeout:     2 * time.Second,
	})
	return c, &hits
}

func TestParseMovieID(t *testing.T) {
	t.Parallel()

	id, err := ParseMovieID("603")
	require.NoError(t, err)
	require.Equal(t, 603, id)

	for _, raw := range []string{"", "abc", "0", "-5", "1.5"} {
		_, err := ParseMovieID(raw)
		require.ErrorIs(t, err, ErrBadRequest, raw)

		var ce *Error
		require.True(t, errors.As(err, &ce))
		require.Equal(t, MsgInvalidMovieID, ce.Message)
	}
}

func TestParsePage(t *testing.T) {
	t.Parallel()

	p, err := ParsePage("")
	require.NoError(t, err)
	require.Equal(t, 1, p)

	p, err = ParsePage("3")
	require.NoError(t, err)
	require.Equal(t, 3, p)

	for _, raw := range []string{"0", "-1", "two"} {
		_, err := ParsePage(raw)
		require.ErrorIs(t, err, ErrBadRequest, raw)
	}
}

func TestParseQuery(t *testing.T) {
	t.Parallel()

	q, err := ParseQuery("star wars")
	require.NoError(t, err)
	require.Equal(t, "star wars", q)

	for _, raw := range []string{"", "   ", "\t"} {
		_, err := ParseQuery(raw)
		require.ErrorIs(t, err, ErrBadRequest)

		var ce *Error
		require.True(t, errors.As(err, &ce))
		require.Equal(t, MsgQueryRequired, ce.Message)
	}
}

func TestGetMovieDetails_OK(t *testing.T) {
	t.Parallel()

	c, hits := newTestClient(t, "k1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/movie/603", r.URL.Path)
		require.Equal(t, "k1", r.URL.Query().Get("api_key"))
		require.Equal(t, "en-US", r.URL.Query().Get("language"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-30","runtime":136,"poster_path":null,"genres":[{"id":28,"name":"Action"}]}`))
	})

	d, err := c.GetMovieDetails(context.Background(), 603)
	require.NoError(t, err)
	require.Equal(t, int32(1), atomic.LoadInt32(hits))
	require.Equal(t, 603, d.ID)
	require.Equal(t, "The Matrix", d.Title)
	require.Equal(t, 1999, d.ReleaseYear())
	require.NotNil(t, d.Runtime)
	require.Equal(t, 136, *d.Runtime)
	require.Nil(t, d.PosterPath)
	require.Len(t, d.Genres, 1)
}

func TestSearchMovies_Params(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "k1", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "/search/movie", r.URL.Path)
		require.Equal(t, "star wars", q.Get("query"))
		require.Equal(t, "2", q.Get("page"))
		require.Equal(t, "false", q.Get("include_adult"))
		_, _ = w.Write([]byte(`{"page":2,"results":[{"id":11,"title":"Star Wars"}],"total_pages":3,"total_results":41}`))
	})

	res, err := c.SearchMovies(context.Background(), "star wars", 2)
	require.NoError(t, err)
	require.Equal(t, 2, res.Page)
	require.Equal(t, 3, res.TotalPages)
	require.Equal(t, 41, res.TotalResults)
	require.Len(t, res.Results, 1)
}

func TestClient_ValidationSendsNothing(t *testing.T) {
	t.Parallel()

	c, hits := newTestClient(t, "k1", func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL)
	})

	_, err := c.SearchMoviesJSON(context.Background(), "   ", 1)
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = c.SearchMoviesJSON(context.Background(), "matrix", 0)
	require.ErrorIs(t, err, ErrBadRequest)

	_, err = c.MovieDetailsJSON(context.Background(), 0)
	require.ErrorIs(t, err, ErrBadRequest)

	require.Zero(t, atomic.LoadInt32(hits))
}

func TestClient_NotConfigured(t *testing.T) {
	t.Parallel()

	c, hits := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, err := c.MovieDetailsJSON(context.Background(), 603)
	require.ErrorIs(t, err, ErrServiceNotConfigured)
	require.Zero(t, atomic.LoadInt32(hits))

	var ce *Error
	require.True(t, errors.As(err, &ce))
	require.Equal(t, MsgNotConfigured, ce.Message)
}

func TestClient_UpstreamStatusClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
		msg    string
	}{
		{"not found", http.StatusNotFound, ErrNotFound, MsgMovieNotFound},
		{"bad key", http.StatusUnauthorized, ErrMisconfiguredService, MsgInvalidAPIConfig},
		{"rate limited", http.StatusTooManyRequests, ErrUpstream, MsgDetailsFailed},
		{"server error", http.StatusServiceUnavailable, ErrUpstream, MsgDetailsFailed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newTestClient(t, "k1", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status_message":"nope"}`))
			})

			_, err := c.MovieDetailsJSON(context.Background(), 603)
			require.ErrorIs(t, err, tt.want)

			var ce *Error
			require.True(t, errors.As(err, &ce))
			require.Equal(t, tt.status, ce.Status)
			require.Equal(t, tt.msg, ce.Message)
		})
	}
}

func TestClient_InvalidJSONIsUpstream502(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, "k1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.SearchMoviesJSON(context.Background(), "matrix", 1)
	require.ErrorIs(t, err, ErrUpstream)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	require.Equal(t, http.StatusBadGateway, ce.Status)
	require.Equal(t, MsgSearchFailed, ce.Message)
}

func TestClient_NetworkErrorRedactsKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := NewClient(ClientConfig{Credentials: credential.Static("super-secret"), BaseURL: base, Timeout: time.Second})

	_, err := c.MovieDetailsJSON(context.Background(), 603)
	require.ErrorIs(t, err, ErrTransientNetwork)
	require.NotContains(t, err.Error(), "super-secret")
	require.True(t, strings.Contains(err.Error(), "REDACTED"))
}

func TestClient_RequestLogFunc(t *testing.T) {
	t.Parallel()

	type call struct {
		op     string
		kind   Kind
		status int
	}
	var calls []call

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/movie/1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{
		Credentials: credential.Static("k"),
		BaseURL:     srv.URL,
		RequestLogFunc: func(op string, kind Kind, status int, _ time.Duration) {
			calls = append(calls, call{op, kind, status})
		},
	})

	_, _ = c.SearchMoviesJSON(context.Background(), "x", 1)
	_, _ = c.MovieDetailsJSON(context.Background(), 1)

	require.Equal(t, []call{
		{"search", KindUnknown, http.StatusOK},
		{"details", KindNotFound, http.StatusNotFound},
	}, calls)
}

func TestRedactURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "http://x/movie/1?api_key=REDACTED&language=en", redactURL("http://x/movie/1?api_key=abc&language=en"))
	require.Equal(t, "http://x/?a=b", redactURL("http://x/?a=b"))
}

func TestImageURL(t *testing.T) {
	t.Parallel()

	p := "/abc.jpg"
	require.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", ImageURL(&p, PosterLarge))
	require.Empty(t, ImageURL(nil, PosterLarge))
}
