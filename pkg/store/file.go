package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// FileBlob persists each blob as a markdown file under a root directory.
// Writes replace the whole file, matching the Blob contract.
type FileBlob struct {
	root string
	mu   sync.Mutex
}

func NewFileBlob(root string) (*FileBlob, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FileBlob{root: root}, nil
}

func (f *FileBlob) path(key string) string {
	return filepath.Join(f.root, sanitizeKey(key)+".md")
}

func (f *FileBlob) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (f *FileBlob) Put(_ context.Context, key, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return os.WriteFile(f.path(key), []byte(content), 0o600)
}
