// Package local stores objects in a directory on the local filesystem.
package local

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrlokans/lingua/internal/storage"
)

var ErrInvalidPath = errors.New("path escapes storage root")

// Client implements storage.Client on top of a root directory.
type Client struct {
	root string
}

var _ storage.Client = (*Client)(nil)

// NewClient creates the root directory if needed.
func NewClient(root string) (*Client, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Client{root: abs}, nil
}

func (c *Client) Root() string {
	return c.root
}

func (c *Client) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.TrimPrefix(p, "/"))
	full := filepath.Join(c.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(c.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	return full, nil
}

// List returns the entries of dir sorted by name.
func (c *Client) List(ctx context.Context, dir string) ([]storage.FileInfo, error) {
	full, err := c.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	files := make([]storage.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".tmp-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, storage.FileInfo{
			Name:       entry.Name(),
			Path:       path.Join(strings.Trim(dir, "/"), entry.Name()),
			IsDir:      entry.IsDir(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Download opens p for reading. The caller closes it.
func (c *Client) Download(ctx context.Context, p string) (io.ReadCloser, error) {
	full, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return f, nil
}

// Upload writes to a temporary file in the target directory and renames it
// into place so readers never observe a partial object.
func (c *Client) Upload(ctx context.Context, p string, content io.Reader) error {
	full, err := c.resolve(p)
	if err != nil {
		return err
	}
	if full == c.root {
		return fmt.Errorf("%w: %s", ErrInvalidPath, p)
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, readerWithContext(ctx, content)); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("rename %s: %w", p, err)
	}
	return nil
}

// Delete removes p. A missing file is not an error.
func (c *Client) Delete(ctx context.Context, p string) error {
	full, err := c.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, p string) (bool, error) {
	_, err := c.GetMetadata(ctx, p)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Client) GetMetadata(ctx context.Context, p string) (*storage.FileInfo, error) {
	full, err := c.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", p, err)
	}

	fi := &storage.FileInfo{
		Name:       info.Name(),
		Path:       strings.Trim(p, "/"),
		IsDir:      info.IsDir(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
	if !info.IsDir() {
		hash, err := fileMD5(full)
		if err != nil {
			return nil, err
		}
		fi.ContentHash = hash
	}
	return fi, nil
}

func fileMD5(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
