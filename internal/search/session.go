// Package search holds the state of an interactive, paginated movie search.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/marco/movieExplorer/internal/api"
	"github.com/marco/movieExplorer/internal/catalog"
	"github.com/marco/movieExplorer/internal/logctx"
)

// Status is the phase of a search session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusSearching Status = "searching"
	StatusSuccess   Status = "success"
	StatusEmpty     Status = "empty"
	StatusError     Status = "error"
)

const (
	MsgEmptyQuery = "Please enter a search term"
	MsgNoResults  = "No movies found. Try a different search term."
)

// Searcher fetches one page of search results.
type Searcher interface {
	SearchMovies(ctx context.Context, query string, page int) (*catalog.SearchPage, error)
}

// State is a snapshot of the session.
type State struct {
	Query        string
	Results      []catalog.Movie
	Page         int
	TotalPages   int
	TotalResults int
	Loading      bool
	Status       Status
	Message      string
}

// HasMore reports whether LoadMore would issue a request.
func (s State) HasMore() bool {
	return s.Query != "" && s.Page < s.TotalPages && !s.Loading
}

// Session accumulates search results across pages. Responses that arrive
// after a newer Search or ClearResults are dropped.
type Session struct {
	searcher Searcher

	mu        sync.Mutex
	state     State
	gen       uint64
	observers map[int]func(State)
	nextObs   int
}

// NewSession creates an idle session.
func NewSession(searcher Searcher) *Session {
	return &Session{
		searcher:  searcher,
		state:     idleState(),
		observers: make(map[int]func(State)),
	}
}

func idleState() State {
	return State{Page: 1, Status: StatusIdle}
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called after every state change. The
// returned func removes it.
func (s *Session) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Search starts a new query from page 1, replacing accumulated results.
// A blank query only sets an error message.
func (s *Session) Search(ctx context.Context, query string) {
	if strings.TrimSpace(query) == "" {
		s.mutate(func(st *State) {
			st.Status = StatusError
			st.Message = MsgEmptyQuery
		})
		return
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state.Query = query
	s.state.Loading = true
	s.state.Status = StatusSearching
	s.state.Message = ""
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()
	notify(obs, snap)

	s.fetch(ctx, gen, query, 1)
}

// LoadMore requests the next page of the current query and appends it. It
// returns false without doing anything when there is no next page or a
// request is already in flight.
func (s *Session) LoadMore(ctx context.Context) bool {
	s.mu.Lock()
	if !s.state.HasMore() {
		s.mu.Unlock()
		return false
	}
	gen := s.gen
	query := s.state.Query
	page := s.state.Page + 1
	s.state.Loading = true
	s.state.Status = StatusSearching
	s.state.Message = ""
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()
	notify(obs, snap)

	s.fetch(ctx, gen, query, page)
	return true
}

// ClearResults returns the session to idle. Responses still in flight are
// ignored when they arrive.
func (s *Session) ClearResults() {
	s.mu.Lock()
	s.gen++
	s.state = idleState()
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()
	notify(obs, snap)
}

func (s *Session) fetch(ctx context.Context, gen uint64, query string, page int) {
	lg := logctx.From(ctx)
	res, err := s.searcher.SearchMovies(ctx, query, page)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		lg.Debug("discarding stale search response", "query", query, "page", page)
		return
	}

	st := &s.state
	st.Loading = false

	switch {
	case err != nil:
		lg.Warn("search failed", "query", query, "page", page, "error", err)
		st.Status = StatusError
		st.Message = userMessage(err)
		if page == 1 {
			st.Results = nil
			st.TotalResults, st.Page, st.TotalPages = 0, 1, 0
		}

	case len(res.Results) == 0 && page == 1:
		st.Status = StatusEmpty
		st.Message = MsgNoResults
		st.Results = nil
		st.TotalResults, st.Page, st.TotalPages = res.TotalResults, res.Page, res.TotalPages

	default:
		if page == 1 {
			st.Results = append([]catalog.Movie(nil), res.Results...)
		} else {
			st.Results = append(st.Results, res.Results...)
		}
		st.Status = StatusSuccess
		st.Message = ""
		st.TotalResults, st.Page, st.TotalPages = res.TotalResults, res.Page, res.TotalPages
	}

	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()
	notify(obs, snap)
}

func (s *Session) mutate(fn func(*State)) {
	s.mu.Lock()
	fn(&s.state)
	snap, obs := s.snapshotLocked(), s.observersLocked()
	s.mu.Unlock()
	notify(obs, snap)
}

func (s *Session) snapshotLocked() State {
	snap := s.state
	snap.Results = append([]catalog.Movie(nil), s.state.Results...)
	return snap
}

func (s *Session) observersLocked() []func(State) {
	obs := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	return obs
}

func notify(obs []func(State), st State) {
	for _, fn := range obs {
		fn(st)
	}
}

func userMessage(err error) string {
	var ae *api.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	var ce *catalog.Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	if err.Error() != "" {
		return err.Error()
	}
	return api.MsgUnexpected
}
