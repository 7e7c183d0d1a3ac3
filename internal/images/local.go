package images

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	name, err := objectName(filename, contentType)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close image file: %w", err)
	}

	return path, nil
}

// Remove deletes a file previously returned by Save. References outside the
// store's directory are rejected.
func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	rel, err := filepath.Rel(s.dir, ref)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("image %q is outside the image directory", ref)
	}
	if err := os.Remove(ref); err != nil {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}
