// Package storage provides durable key/value backends for client-side state,
// in the manner of browser local storage: string keys, opaque values.
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
)

// ErrNotFound is returned by Get when the key has never been set.
var ErrNotFound = errors.New("key not found")

// Backend stores opaque values under string keys.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)

	// Set replaces the value stored under key.
	Set(key string, value []byte) error

	// Close releases resources held by the backend.
	Close() error
}

const (
	KindFile   = "file"
	KindSQLite = "sqlite"

	sqliteFileName = "local_storage.db"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}

// Open returns the backend of the given kind rooted at dir.
func Open(kind, dir string) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileBackend(dir)
	case KindSQLite:
		return NewSQLiteBackend(filepath.Join(dir, sqliteFileName))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
