package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FS stores blobs as files below a root directory.
type FS struct {
	root string
}

// NewFS creates the root directory if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: resolve root: %w", err)
	}
	if errMkdir := os.MkdirAll(abs, 0o750); errMkdir != nil {
		return nil, fmt.Errorf("blob: create root: %w", errMkdir)
	}
	return &FS{root: abs}, nil
}

func (s *FS) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

// Put writes r to key through a temporary file renamed into place.
func (s *FS) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if errMkdir := os.MkdirAll(filepath.Dir(target), 0o750); errMkdir != nil {
		return fmt.Errorf("blob: create dir: %w", errMkdir)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return fmt.Errorf("blob: create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, errCopy := io.Copy(tmp, contextReader{ctx: ctx, r: r}); errCopy != nil {
		_ = tmp.Close()
		return fmt.Errorf("blob: write %s: %w", key, errCopy)
	}
	if errClose := tmp.Close(); errClose != nil {
		return fmt.Errorf("blob: close %s: %w", key, errClose)
	}
	if errRename := os.Rename(tmp.Name(), target); errRename != nil {
		return fmt.Errorf("blob: commit %s: %w", key, errRename)
	}
	return nil
}

// Get opens key for reading.
func (s *FS) Get(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("blob: open %s: %w", key, err)
	}
	return f, nil
}

// Delete removes key; missing keys are not an error.
func (s *FS) Delete(_ context.Context, key string) error {
	target, err := s.path(key)
	if err != nil {
		return err
	}
	if errRemove := os.Remove(target); errRemove != nil && !errors.Is(errRemove, os.ErrNotExist) {
		return fmt.Errorf("blob: delete %s: %w", key, errRemove)
	}
	return nil
}

// Exists reports whether key is stored.
func (s *FS) Exists(_ context.Context, key string) (bool, error) {
	target, err := s.path(key)
	if err != nil {
		return false, err
	}
	if _, errStat := os.Stat(target); errStat != nil {
		if errors.Is(errStat, os.ErrNotExist) {
			return false, nil
		}
		return false, errStat
	}
	return true, nil
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
