// Package storage moves library blobs (recordings, media, speech) between
// the local library directory and remote object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrNotFound = errors.New("object not found")

// FileInfo contains metadata about a stored object or directory
type FileInfo struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	IsDir       bool      `json:"isDir"`
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	ContentHash string    `json:"contentHash,omitempty"` // Provider-specific content hash (if available)
}

// Client defines the interface for object storage operations. Paths are
// slash-separated and relative to the provider root.
type Client interface {
	// List returns entries directly under the specified directory path
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Download retrieves the contents of a file
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Upload writes content to a file path, replacing any existing file
	Upload(ctx context.Context, path string, content io.Reader) error

	// Delete removes a file. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// Exists checks if a file exists
	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata retrieves file info without downloading content
	GetMetadata(ctx context.Context, path string) (*FileInfo, error)
}

// FilterFiles filters file list by a predicate function
func FilterFiles(files []FileInfo, predicate func(FileInfo) bool) []FileInfo {
	var filtered []FileInfo
	for _, f := range files {
		if predicate(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}
