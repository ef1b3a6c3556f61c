package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/credential"
)

// upstream fakes TMDB and counts hits.
type upstream struct {
	srv    *httptest.Server
	hits   atomic.Int32
	status int
	body   string
	last   atomic.Value // *http.Request
}

func newUpstream(t *testing.T, status int, body string) *upstream {
	t.Helper()

	u := &upstream{status: status, body: body}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.last.Store(r)
		w.WriteHeader(u.status)
		_, _ = w.Write([]byte(u.body))
	}))
	t.Cleanup(u.srv.Close)
	return u
}

func newProxy(t *testing.T, u *upstream, key string) http.Handler {
	t.Helper()

	cat := catalog.NewClient(catalog.ClientConfig{
		Credentials: credential.Static(key),
		BaseURL:     u.srv.URL,
		Timeout:     2 * time.Second,
	})
	return NewRouter(cat, Options{BasePath: "/api", Timeout: 5 * time.Second})
}

func do(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestGetMovie_ForwardsIDAndCaches(t *testing.T) {
	t.Parallel()

	u := newUpstream(t, http.StatusOK, `{"id":603,"title":"The Matrix","runtime":136}`)
	h := newProxy(t, u, "k")

	rr := do(h, "/api/movies/603")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))
	require.JSONEq(t, u.body, rr.Body.String())

	req := u.last.Load().(*http.Request)
	require.Equal(t, "/movie/603", req.URL.Path)
}

func TestGetMovie_InvalidIDNoUpstreamCall(t *testing.T) {
	t.Parallel()

	u := newUpstream(t, http.StatusOK, `{}`)
	h := newProxy(t, u, "k")

	for _, p := range []string{"/api/movies/abc", "/api/movies/0", "/api/movies/-3"} {
		rr := do(h, p)
		require.Equal(t, http.StatusBadRequest, rr.Code, p)
		require.Equal(t, "Invalid movie ID", decodeError(t, rr))
	}
	require.Zero(t, u.hits.Load())
}

func TestSearch_PageDefaultsAndHeaders(t *testing.T) {
	t.Parallel()

	u := newUpstream(t, http.StatusOK, `{"page":1,"results":[{"id":603,"title":"The Matrix"}],"total_pages":1,"total_results":1}`)
	h := newProxy(t, u, "k")

	rr := do(h, "/api/movies/search?query=Matrix")

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))

	q := u.last.Load().(*http.Request).URL.Query()
	require.Equal(t, "Matrix", q.Get("query"))
	require.Equal(t, "1", q.Get("page"))
	require.Equal(t, "false", q.Get("include_adult"))
}

func TestSearch_BadInput(t *testing.T) {
	t.Parallel()

	u := newUpstream(t, http.StatusOK, `{}`)
	h := newProxy(t, u, "k")

	rr := do(h, "/api/movies/search")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Search query is required", decodeError(t, rr))

	rr = do(h, "/api/movies/search?query=x&page=zero")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, catalog.MsgInvalidPage, decodeError(t, rr))

	// a missing query wins over a bad page
	rr = do(h, "/api/movies/search?query=%20&page=abc")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, catalog.MsgQueryRequired, decodeError(t, rr))

	require.Zero(t, u.hits.Load())
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		status   int
		body     string
		wantCode int
		wantMsg  string
	}{
		{"no key", "", http.StatusOK, `{}`, http.StatusInternalServerError, catalog.MsgNotConfigured},
		{"upstream 404", "k", http.StatusNotFound, `{}`, http.StatusNotFound, "Movie not found"},
		{"upstream 401", "k", http.StatusUnauthorized, `{}`, http.StatusInternalServerError, "Invalid API configuration"},
		{"upstream 429", "k", http.StatusTooManyRequests, `{}`, http.StatusTooManyRequests, catalog.MsgDetailsFailed},
		{"upstream 503", "k", http.StatusServiceUnavailable, `{}`, http.StatusServiceUnavailable, catalog.MsgDetailsFailed},
		{"upstream 300", "k", http.StatusMultipleChoices, `{}`, http.StatusMultipleChoices, catalog.MsgDetailsFailed},
		{"upstream 304", "k", http.StatusNotModified, ``, http.StatusBadGateway, catalog.MsgDetailsFailed},
		{"garbage body", "k", http.StatusOK, `not json`, http.StatusBadGateway, catalog.MsgDetailsFailed},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			u := newUpstream(t, tt.status, tt.body)
			rr := do(newProxy(t, u, tt.key), "/api/movies/603")

			require.Equal(t, tt.wantCode, rr.Code)
			require.Equal(t, tt.wantMsg, decodeError(t, rr))
		})
	}
}

func TestErrorMapping_NetworkFailure(t *testing.T) {
	t.Parallel()

	u := newUpstream(t, http.StatusOK, `{}`)
	h := newProxy(t, u, "k")
	u.srv.Close()

	rr := do(h, "/api/movies/603")
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, catalog.MsgNetwork, decodeError(t, rr))
}

type panicCatalog struct{}

func (panicCatalog) MovieDetailsJSON(context.Context, int) (json.RawMessage, error) {
	panic("boom")
}

func (panicCatalog) SearchMoviesJSON(context.Context, string, int) (json.RawMessage, error) {
	return nil, nil
}

func TestRecover(t *testing.T) {
	t.Parallel()

	h := NewRouter(panicCatalog{}, Options{BasePath: "/api"})
	rr := do(h, "/api/movies/1")

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, msgUnexpected, decodeError(t, rr))
}

func TestRequestID_Preserved(t *testing.T) {
	t.Parallel()

	h := NewRouter(panicCatalog{}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "abc-123", rr.Header().Get("X-Request-Id"))
}

func TestTimeout_SetsDeadline(t *testing.T) {
	t.Parallel()

	var hasDeadline bool
	h := Timeout(time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, hasDeadline)
}
