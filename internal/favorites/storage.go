package favorites

import (
	"errors"
	"fmt"

	"github.com/marco/movieExplorer/internal/favorites/storage"
)

// StorageKey is the fixed key the collection lives under.
const StorageKey = "movie-explorer-favorites"

var (
	ErrStorageRead  = errors.New("storage read failure")
	ErrStorageWrite = errors.New("storage write failure")
)

// StorageError wraps a persistence failure. Op is "read" or "write".
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("favorites %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	switch e.Op {
	case "read":
		return target == ErrStorageRead
	case "write":
		return target == ErrStorageWrite
	}
	return false
}

// Storage loads and saves the whole collection.
type Storage interface {
	Load() ([]Favorite, error)
	Save([]Favorite) error
	Close() error
}

// BackendStorage keeps the collection as one JSON document in a key/value
// backend.
type BackendStorage struct {
	backend storage.Backend
}

// NewBackendStorage stores the collection under StorageKey in b.
func NewBackendStorage(b storage.Backend) *BackendStorage {
	return &BackendStorage{backend: b}
}

// Load returns nil when nothing has been stored yet.
func (s *BackendStorage) Load() ([]Favorite, error) {
	data, err := s.backend.Get(StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// Save replaces the stored document with items.
func (s *BackendStorage) Save(items []Favorite) error {
	data, err := encode(items)
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	return s.backend.Set(StorageKey, data)
}

// Close closes the backend.
func (s *BackendStorage) Close() error {
	return s.backend.Close()
}
