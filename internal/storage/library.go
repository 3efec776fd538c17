package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/mrlokans/lingua/internal/entities"
)

// Library lays out blobs inside the local library directory. The same
// relative paths are used as keys in remote storage.
type Library struct {
	root string
}

// NewLibrary returns a library rooted at root. Call Ensure before use.
func NewLibrary(root string) *Library {
	return &Library{root: root}
}

func (l *Library) Root() string {
	return l.root
}

// Directories created by Ensure, one per blob kind.
var libraryDirs = []string{"audios", "videos", "documents", "recordings", "speeches", "cache"}

// Ensure creates the library root and its sub-directories.
func (l *Library) Ensure() error {
	for _, dir := range libraryDirs {
		if err := os.MkdirAll(filepath.Join(l.root, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create library directory %s: %w", dir, err)
		}
	}
	return nil
}

// RecordingKey is the blob key of a recording.
func (l *Library) RecordingKey(r entities.Recording) string {
	return path.Join("recordings", r.Filename())
}

// LocalPath maps a relative key to a file inside the library directory.
func (l *Library) LocalPath(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

// Open opens the local file for key.
func (l *Library) Open(key string) (*os.File, error) {
	f, err := os.Open(l.LocalPath(key))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

// Exists reports whether the local file for key is present.
func (l *Library) Exists(key string) bool {
	info, err := os.Stat(l.LocalPath(key))
	return err == nil && !info.IsDir()
}

// Save writes content to the local file for key through a temporary file,
// so a failed copy never leaves a truncated blob behind.
func (l *Library) Save(key string, content io.Reader) error {
	full := l.LocalPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, content); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return os.Rename(tmp.Name(), full)
}

// Remove deletes the local file for key. A missing file is not an error.
func (l *Library) Remove(key string) error {
	if err := os.Remove(l.LocalPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}
