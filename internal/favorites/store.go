package favorites

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/marco/movieExplorer/internal/catalog"
)

// Options configures a Store.
type Options struct {
	// Clock stamps addedAt. Defaults to time.Now.
	Clock func() time.Time
	// OnWriteError is called from the writer goroutine when a save fails.
	OnWriteError func(error)
	Logger       *slog.Logger
}

// Store is the in-memory favorites collection. Mutations update memory
// synchronously and are persisted by a background writer; consecutive
// mutations coalesce into a single save of the latest snapshot.
type Store struct {
	storage Storage
	clock   func() time.Time
	onErr   func(error)
	log     *slog.Logger

	mu        sync.Mutex
	items     []Favorite
	loaded    bool
	closed    bool
	observers map[int]func([]Favorite)
	nextObs   int

	// writer state, guarded by wmu
	wmu      sync.Mutex
	snapshot []Favorite
	seq      uint64
	savedSeq uint64
	lastErr  error
	savedCh  chan struct{}

	wake     chan struct{}
	stopChan chan struct{}
	doneChan chan struct{}
}

// Open loads the collection from st and starts the writer. A read failure
// is logged and leaves the store empty; the store is loaded either way.
func Open(st Storage, opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{
		storage:   st,
		clock:     opts.Clock,
		onErr:     opts.OnWriteError,
		log:       opts.Logger,
		observers: make(map[int]func([]Favorite)),
		savedCh:   make(chan struct{}),
		wake:      make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}

	items, err := st.Load()
	if err != nil {
		s.log.Error("failed to load favorites", "error", &StorageError{Op: "read", Err: err})
		items = nil
	}
	s.items = items
	s.loaded = true
	s.log.Debug("favorites loaded", "count", len(items))

	go s.writeLoop()
	return s
}

// Loaded reports whether the initial load has completed.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Favorite(nil), s.items...)
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// IsFavorite reports whether id is in the collection.
func (s *Store) IsFavorite(id int) bool {
	_, ok := s.Get(id)
	return ok
}

// Get returns the favorite with id.
func (s *Store) Get(id int) (Favorite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.items[i], true
	}
	return Favorite{}, false
}

// Add saves movie with an optional rating and note. It returns false if the
// movie is already a favorite.
func (s *Store) Add(movie catalog.Movie, rating float64, note string) (bool, error) {
	if movie.ID <= 0 {
		return false, fmt.Errorf("%w: got %d", ErrInvalidID, movie.ID)
	}
	if err := ValidateRating(rating); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.indexLocked(movie.ID) >= 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.items = append(s.items, newFavorite(movie, rating, note, s.clock()))
	s.commitLocked()
	return true, nil
}

// Remove deletes id. It returns false if id was not a favorite.
func (s *Store) Remove(id int) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.commitLocked()
	return true
}

// Update applies the non-nil fields of u to id. It returns false if id is
// not a favorite.
func (s *Store) Update(id int, u FavoriteUpdate) (bool, error) {
	if u.Rating != nil {
		if err := ValidateRating(*u.Rating); err != nil {
			return false, err
		}
	}

	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	if u.Rating != nil {
		s.items[i].Rating = *u.Rating
	}
	if u.Note != nil {
		s.items[i].Note = *u.Note
	}
	s.commitLocked()
	return true, nil
}

// Toggle removes movie if it is a favorite and adds it unrated otherwise.
// It reports whether the movie is a favorite afterwards; a movie without a
// valid id is never added.
func (s *Store) Toggle(movie catalog.Movie) bool {
	if s.Remove(movie.ID) {
		return false
	}
	added, _ := s.Add(movie, 0, "")
	return added || s.IsFavorite(movie.ID)
}

// Subscribe registers fn to receive the collection after every mutation.
func (s *Store) Subscribe(fn func([]Favorite)) func() {
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

// Flush waits until every mutation made before the call has been written.
// It returns the error of the most recent save.
func (s *Store) Flush(ctx context.Context) error {
	s.wmu.Lock()
	target := s.seq
	s.wmu.Unlock()

	for {
		s.wmu.Lock()
		if s.savedSeq >= target {
			err := s.lastErr
			s.wmu.Unlock()
			return err
		}
		ch := s.savedCh
		s.wmu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		case <-s.doneChan:
			return nil
		}
	}
}

// Close flushes pending writes, stops the writer and closes the storage.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Warn("favorites flush on close incomplete", "error", err)
	}

	close(s.stopChan)
	<-s.doneChan

	return s.storage.Close()
}

func (s *Store) indexLocked(id int) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// commitLocked hands a snapshot to the writer, releases s.mu and notifies
// observers.
func (s *Store) commitLocked() {
	snap := append([]Favorite(nil), s.items...)
	obs := make([]func([]Favorite), 0, len(s.observers))
	for _, fn := range s.observers {
		obs = append(obs, fn)
	}
	closed := s.closed

	// taken while s.mu is held so snapshots reach the writer in mutation order
	s.wmu.Lock()
	s.snapshot = snap
	s.seq++
	s.wmu.Unlock()
	s.mu.Unlock()

	if closed {
		s.log.Warn("favorites store is closing; change may not be persisted")
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}

	for _, fn := range obs {
		fn(append([]Favorite(nil), snap...))
	}
}

func (s *Store) writeLoop() {
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-s.wake:
			s.writeLatest()
		}
	}
}

func (s *Store) writeLatest() {
	s.wmu.Lock()
	snap, seq := s.snapshot, s.seq
	s.wmu.Unlock()

	if seq <= s.savedSeqValue() {
		return
	}

	err := s.storage.Save(snap)
	if err != nil {
		err = &StorageError{Op: "write", Err: err}
		s.log.Error("failed to save favorites", "error", err, "count", len(snap))
		if s.onErr != nil {
			s.onErr(err)
		}
	}

	s.wmu.Lock()
	s.savedSeq = seq
	s.lastErr = err
	close(s.savedCh)
	s.savedCh = make(chan struct{})
	s.wmu.Unlock()
}

func (s *Store) savedSeqValue() uint64 {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.savedSeq
}
