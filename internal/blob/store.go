package blob

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_store.go -package=mocks kbase/internal/blob Store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store holds raw uploaded files keyed by document ID.
type Store interface {
	// Save writes the file content and returns the storage path.
	Save(key string, data []byte) (string, error)
	// Read returns the file content for a key.
	Read(key string) ([]byte, error)
	// Delete removes the file. Deleting a missing key is not an error.
	Delete(key string) error
}

// FileStore is a Store backed by a local directory.
type FileStore struct {
	root string
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// Key builds the storage key for a document from its ID and original filename.
// The original name only contributes its extension, so user-supplied names
// never influence the path on disk.
func Key(documentID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return documentID + ext
}

// Save writes the file content and returns the storage path.
func (s *FileStore) Save(key string, data []byte) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload %s: %w", key, err)
	}
	return path, nil
}

// Read returns the file content for a key.
func (s *FileStore) Read(key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", key, err)
	}
	return data, nil
}

// Delete removes the file. Deleting a missing key is not an error.
func (s *FileStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete upload %s: %w", key, err)
	}
	return nil
}

// path resolves a key inside the root, rejecting traversal outside it.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, key), nil
}
