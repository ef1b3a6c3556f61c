package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/logctx"
)

const msgUnexpected = "An unexpected error occurred"

type handlers struct {
	catalog Catalog
}

type errorBody struct {
	Error string `json:"error"`
}

// getMovie serves GET /movies/{id}.
func (h *handlers) getMovie(w http.ResponseWriter, r *http.Request) {
	id, err := catalog.ParseMovieID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := h.catalog.MovieDetailsJSON(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeRaw(w, body, catalog.DetailsMaxAge)
}

// searchMovies serves GET /movies/search?query=&page=.
func (h *handlers) searchMovies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query, err := catalog.ParseQuery(q.Get("query"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := catalog.ParsePage(q.Get("page"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := h.catalog.SearchMoviesJSON(r.Context(), query, page)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeRaw(w, body, catalog.SearchMaxAge)
}

func writeRaw(w http.ResponseWriter, body json.RawMessage, maxAge time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError maps a catalog error to its HTTP status and writes {"error": msg}.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)

	lvl := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		lvl = slog.LevelError
	}
	logctx.From(r.Context()).LogAttrs(r.Context(), lvl, "request_failed",
		slog.String("kind", catalog.KindOf(err).String()),
		slog.Int("status", status),
		slog.String("err", err.Error()),
	)

	writeJSON(w, status, errorBody{Error: msg})
}

// StatusFor returns the HTTP status and user-facing message for err.
func StatusFor(err error) (int, string) {
	var ce *catalog.Error
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError, msgUnexpected
	}

	switch ce.Kind {
	case catalog.KindBadRequest:
		return http.StatusBadRequest, ce.Message
	case catalog.KindNotFound:
		return http.StatusNotFound, ce.Message
	case catalog.KindUpstream:
		// 304 cannot carry the error body.
		if ce.Status >= 300 && ce.Status <= 599 && ce.Status != http.StatusNotModified {
			return ce.Status, ce.Message
		}
		return http.StatusBadGateway, ce.Message
	case catalog.KindServiceNotConfigured, catalog.KindMisconfiguredService, catalog.KindTransientNetwork:
		return http.StatusInternalServerError, ce.Message
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}
