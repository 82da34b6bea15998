// Package blob keeps uploaded images on local disk and serves them
// back to clients as media paths.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store writes PNG blobs under a root directory. The returned reference
// is the path relative to the root, prefixed with the public base.
type Store struct {
	root string
	base string
}

func NewStore(root, base string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &Store{root: root, base: base}, nil
}

func (s *Store) SavePNG(name string, data []byte) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create media folder: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	return s.base + "/" + name, nil
}
