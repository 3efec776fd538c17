package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// Blobs keeps library files and their remote copies in step. Remote may be
// nil, in which case only the local library is touched.
type Blobs struct {
	Library *Library
	Remote  Client
}

// NewBlobs pairs library with remote, which may be nil.
func NewBlobs(library *Library, remote Client) *Blobs {
	return &Blobs{Library: library, Remote: remote}
}

// Remove deletes key locally and remotely. Both deletions are attempted;
// the errors are joined.
func (b *Blobs) Remove(ctx context.Context, key string) error {
	var errs []error
	if err := b.Library.Remove(key); err != nil {
		errs = append(errs, err)
	}
	if b.Remote != nil {
		if err := b.Remote.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remote delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Restore downloads key into the library when the local file is missing.
// It reports whether a download happened, and ErrNotFound when neither
// copy exists.
func (b *Blobs) Restore(ctx context.Context, key string) (bool, error) {
	if b.Library.Exists(key) {
		return false, nil
	}
	if b.Remote == nil {
		return false, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	exists, err := b.Remote.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	body, err := b.Remote.Download(ctx, key)
	if err != nil {
		return false, err
	}
	defer body.Close()
	if err := b.Library.Save(key, body); err != nil {
		return false, err
	}
	return true, nil
}

// ListRemote returns the files (not directories) stored remotely under dir.
func (b *Blobs) ListRemote(ctx context.Context, dir string) ([]FileInfo, error) {
	if b.Remote == nil {
		return []FileInfo{}, nil
	}
	entries, err := b.Remote.List(ctx, path.Clean(dir))
	if errors.Is(err, ErrNotFound) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	files := FilterFiles(entries, func(f FileInfo) bool { return !f.IsDir })
	if files == nil {
		files = []FileInfo{}
	}
	return files, nil
}
