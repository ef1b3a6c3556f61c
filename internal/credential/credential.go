// Package credential supplies the catalog API key to the proxy.
package credential

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Source returns the current API key. An empty key means "not configured".
type Source interface {
	APIKey() string
}

// Static is a fixed API key.
type Static string

// APIKey returns the key itself.
func (s Static) APIKey() string { return strings.TrimSpace(string(s)) }

// secretDataLink is the symlink Kubernetes swaps when it rotates a mounted
// secret; the key file itself produces no event.
const secretDataLink = "..data"

// FileSource reads the API key from a file and reloads it whenever the file
// changes, so a rotated secret takes effect without a restart.
type FileSource struct {
	path          string
	debounceDelay time.Duration
	watcher       *fsnotify.Watcher
	stopChan      chan struct{}
	doneChan      chan struct{}
	closeOnce     sync.Once
	closeErr      error

	mu    sync.RWMutex
	key   string
	timer *time.Timer
}

// NewFileSource reads path once and starts watching its directory. A missing
// file is not an error: the key stays empty until the file appears.
func NewFileSource(path string, debounceDelay time.Duration) (*FileSource, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the parent directory: editors and secret mounts replace the file
	// by rename.
	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	s := &FileSource{
		path:          filepath.Clean(path),
		debounceDelay: debounceDelay,
		watcher:       fsWatcher,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
	s.reload()

	go s.processEvents()

	slog.Info("api key file watcher started", "path", s.path, "configured", s.APIKey() != "")
	return s, nil
}

// APIKey returns the most recently loaded key.
func (s *FileSource) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Close stops watching. Later calls return the first call's result.
func (s *FileSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		<-s.doneChan

		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()

		s.closeErr = s.watcher.Close()
	})
	return s.closeErr
}

func (s *FileSource) processEvents() {
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if name != s.path && filepath.Base(name) != secretDataLink {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.scheduleReload()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("api key watcher error", "error", err)
		}
	}
}

// scheduleReload coalesces bursts of events into one reload.
func (s *FileSource) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounceDelay, s.reload)
}

func (s *FileSource) reload() {
	data, err := os.ReadFile(s.path)
	key := ""
	switch {
	case err == nil:
		key = strings.TrimSpace(string(data))
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("api key file not found", "path", s.path)
	default:
		slog.Error("failed to read api key file", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	changed := s.key != key
	s.key = key
	s.mu.Unlock()

	if changed {
		slog.Info("api key reloaded", "path", s.path, "configured", key != "")
	}
}
