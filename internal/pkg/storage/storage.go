package storage

import (
	"context"
	"errors"
	"io"
)

var ErrNotConfigured = errors.New("storage is not configured")

// Storage is an object store for generated documents.
type Storage interface {
	// Put stores the object under key, replacing any previous content.
	Put(ctx context.Context, key string, reader io.Reader, contentType string) error

	// GetURL returns the URL a client can fetch key from.
	GetURL(key string) string
}
