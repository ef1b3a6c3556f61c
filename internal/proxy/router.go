// Package proxy exposes the catalog over HTTP so the API key never leaves
// the server.
package proxy

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/marco/movieExplorer/internal/metrics"
)

// Catalog is the subset of the catalog client the proxy serves.
type Catalog interface {
	MovieDetailsJSON(ctx context.Context, id int) (json.RawMessage, error)
	SearchMoviesJSON(ctx context.Context, query string, page int) (json.RawMessage, error)
}

// Options configures NewRouter.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // e.g. "/api"; empty mounts routes at the root
	Metrics  *metrics.Metrics
}

// NewRouter builds the chi handler with middleware and routes attached.
func NewRouter(cat Catalog, opts Options) http.Handler {
	root := chi.NewRouter()

	// outer -> inner
	root.Use(
		Recover(),
		RequestID(),
		Logging(opts.Logger),
	)
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware)
	}
	if opts.Timeout > 0 {
		root.Use(Timeout(opts.Timeout))
	}

	root.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	})
	root.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
	})

	h := &handlers{catalog: cat}

	if opts.BasePath != "" && opts.BasePath != "/" {
		sub := chi.NewRouter()
		sub.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
		})
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

func registerRoutes(r chi.Router, h *handlers) {
	// static segment wins over {id}
	r.Get("/movies/search", h.searchMovies)
	r.Get("/movies/{id}", h.getMovie)
}
