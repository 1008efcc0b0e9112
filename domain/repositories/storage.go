package repositories

import (
	"context"
	"time"

	"github.com/satriahrh/learnvoice/internal/cachekey"
)

// BlobStore persists audio blobs by cache key and hands out retrievable URLs.
// Exists never reports absence as an error. Get of a missing object returns
// entities.ErrBlobNotFound.
type BlobStore interface {
	Exists(ctx context.Context, key cachekey.Key) (bool, error)
	Get(ctx context.Context, key cachekey.Key) ([]byte, error)
	Put(ctx context.Context, key cachekey.Key, data []byte, contentType string) error
	SignedURL(ctx context.Context, key cachekey.Key, ttl time.Duration) (string, error)
}

// ConfigurationReporter is implemented by stores that can run without a backend
type ConfigurationReporter interface {
	Configured() bool
}
