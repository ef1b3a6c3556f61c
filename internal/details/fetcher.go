// Package details loads the full record of one movie on demand.
package details

import (
	"context"
	"errors"
	"sync"

	"github.com/marco/movieExplorer/internal/api"
	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/logctx"
)

// MsgFetchFailed is shown when a failure carries no message of its own.
const MsgFetchFailed = "Failed to fetch movie details"

// Getter fetches movie details by id.
type Getter interface {
	GetMovieDetails(ctx context.Context, id int) (*catalog.MovieDetails, error)
}

// State is a snapshot of the detail view. ID is the requested movie; Movie
// is nil or the record for that same ID.
type State struct {
	ID      int
	Movie   *catalog.MovieDetails
	Loading bool
	Error   string
}

// Fetcher holds the currently open movie. Nothing is cached: opening the
// same id again issues a new request.
type Fetcher struct {
	getter Getter

	mu        sync.Mutex
	state     State
	gen       uint64
	observers map[int]func(State)
	nextObs   int
}

// NewFetcher returns a Fetcher with no movie open.
func NewFetcher(getter Getter) *Fetcher {
	return &Fetcher{getter: getter, observers: make(map[int]func(State))}
}

// State returns the current detail view.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Subscribe registers fn for state changes and returns its remover.
func (f *Fetcher) Subscribe(fn func(State)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextObs
	f.nextObs++
	f.observers[id] = fn

	return func() {
		f.mu.Lock()
		delete(f.observers, id)
		f.mu.Unlock()
	}
}

// Fetch loads the details of id. On failure the record is cleared and the
// error message stored.
func (f *Fetcher) Fetch(ctx context.Context, id int) {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	if f.state.Movie != nil && f.state.Movie.ID != id {
		f.state.Movie = nil
	}
	f.state.ID = id
	f.state.Loading = true
	f.state.Error = ""
	f.publishLocked()

	movie, err := f.getter.GetMovieDetails(ctx, id)

	f.mu.Lock()
	if gen != f.gen {
		f.mu.Unlock()
		logctx.From(ctx).Debug("discarding stale details response", "id", id)
		return
	}

	f.state.Loading = false
	if err != nil {
		logctx.From(ctx).Warn("details fetch failed", "id", id, "error", err)
		f.state.Movie = nil
		f.state.Error = errorMessage(err)
	} else {
		f.state.Movie = movie
	}
	f.publishLocked()
}

// Clear closes the detail view. A response still in flight is dropped.
func (f *Fetcher) Clear() {
	f.mu.Lock()
	f.gen++
	f.state = State{}
	f.publishLocked()
}

// publishLocked releases the lock and notifies observers with a snapshot.
func (f *Fetcher) publishLocked() {
	snap := f.state
	obs := make([]func(State), 0, len(f.observers))
	for _, fn := range f.observers {
		obs = append(obs, fn)
	}
	f.mu.Unlock()

	for _, fn := range obs {
		fn(snap)
	}
}

func errorMessage(err error) string {
	var ae *api.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	var ce *catalog.Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return MsgFetchFailed
}
