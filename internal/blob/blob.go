// Package blob defines the file-storage contract the engine consumes.
// The storage backend itself is an external collaborator; FSStore is a
// filesystem implementation used by the worker and tests.
package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store exposes upload, streaming download, and delete by opaque path.
type Store interface {
	Upload(ctx context.Context, path string, r io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) Upload(ctx context.Context, path string, r io.Reader) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}
	f, err := os.Create(full)
	if err != nil {
		return fmt.Errorf("create blob: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

func (s *FSStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *FSStore) Delete(ctx context.Context, path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// resolve rejects paths that escape the store root.
func (s *FSStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(s.root, clean), nil
}

// ReadAll drains a blob into memory. Extraction strategies need the
// whole document anyway.
func ReadAll(ctx context.Context, store Store, path string) ([]byte, error) {
	rc, err := store.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", path, err)
	}
	return data, nil
}
