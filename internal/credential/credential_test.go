package credential

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatic_TrimsWhitespace(t *testing.T) {
	t.Parallel()
	require.Equal(t, "abc", Static("  abc\n").APIKey())
	require.Empty(t, Static("").APIKey())
}

func TestFileSource_InitialRead(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "tmdb.key")
	require.NoError(t, os.WriteFile(p, []byte("secret-1\n"), 0o600))

	s, err := NewFileSource(p, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.Equal(t, "secret-1", s.APIKey())
}

func TestFileSource_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	s, err := NewFileSource(filepath.Join(t.TempDir(), "absent.key"), 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.Empty(t, s.APIKey())
}

func TestFileSource_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "tmdb.key")

	s, err := NewFileSource(p, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.Empty(t, s.APIKey())

	require.NoError(t, os.WriteFile(p, []byte("rotated"), 0o600))
	require.Eventually(t, func() bool { return s.APIKey() == "rotated" }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(p))
	require.Eventually(t, func() bool { return s.APIKey() == "" }, 3*time.Second, 20*time.Millisecond)
}

// TestFileSource_ReloadsOnSecretSwap lays the directory out like a mounted
// Kubernetes secret: key -> ..data/key, ..data -> ..v1. Rotation swaps
// ..data atomically, so no event names the key file.
func TestFileSource_ReloadsOnSecretSwap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for v, key := range map[string]string{"..v1": "old-key", "..v2": "new-key"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, v), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, v, "tmdb.key"), []byte(key), 0o600))
	}
	require.NoError(t, os.Symlink("..v1", filepath.Join(dir, "..data")))
	p := filepath.Join(dir, "tmdb.key")
	require.NoError(t, os.Symlink(filepath.Join("..data", "tmdb.key"), p))

	s, err := NewFileSource(p, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.Equal(t, "old-key", s.APIKey())

	require.NoError(t, os.Symlink("..v2", filepath.Join(dir, "..data_tmp")))
	require.NoError(t, os.Rename(filepath.Join(dir, "..data_tmp"), filepath.Join(dir, "..data")))

	require.Eventually(t, func() bool { return s.APIKey() == "new-key" }, 3*time.Second, 20*time.Millisecond)
}

func TestFileSource_CloseTwice(t *testing.T) {
	t.Parallel()

	s, err := NewFileSource(filepath.Join(t.TempDir(), "tmdb.key"), time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}

func TestNewFileSource_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewFileSource(filepath.Join(t.TempDir(), "no", "such", "tmdb.key"), time.Millisecond)
	require.Error(t, err)
}
