package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileStore saves uploads to disk under a base directory and resolves them
// to paths under a public URL prefix served by the HTTP layer.
type FileStore struct {
	basePath  string
	urlPrefix string
}

// NewFileStore creates the base directory if missing. urlPrefix is the HTTP
// route the files are served under, e.g. "/files".
func NewFileStore(basePath, urlPrefix string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	urlPrefix = strings.TrimRight(strings.TrimSpace(urlPrefix), "/")
	if urlPrefix == "" {
		urlPrefix = "/files"
	}
	return &FileStore{basePath: basePath, urlPrefix: urlPrefix}, nil
}

// Root returns the base directory for http.FileServer use.
func (f *FileStore) Root() string {
	return f.basePath
}

// Put writes an upload under the given key.
func (f *FileStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	target := filepath.Join(f.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create blob dir: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// URL maps a key to its public path.
func (f *FileStore) URL(_ context.Context, key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return f.urlPrefix + "/" + key, nil
}

// Delete removes all files stored under the key's top-level directory.
func (f *FileStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	target := filepath.Join(f.basePath, filepath.FromSlash(key))
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(target)
}

func cleanKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("blob key is required")
	}
	cleaned := path.Clean(key)
	if cleaned != key || strings.HasPrefix(cleaned, "..") || strings.Contains(cleaned, "../") {
		return "", fmt.Errorf("invalid blob key: %q", key)
	}
	return cleaned, nil
}
