package storage

import (
	"context"
	"io"
)

// BlobStore stores uploaded cover images and PDFs and resolves them to URLs
// the storefront can render. References stay valid for at least the session
// lifetime.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
