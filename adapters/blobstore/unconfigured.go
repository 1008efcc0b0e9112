package blobstore

import (
	"context"
	"fmt"
	"time"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

// Unconfigured stands in when no storage backend is set up. Nothing is ever cached.
type Unconfigured struct{}

var (
	_ repositories.BlobStore             = Unconfigured{}
	_ repositories.ConfigurationReporter = Unconfigured{}
)

func (Unconfigured) Exists(context.Context, cachekey.Key) (bool, error) {
	return false, nil
}

func (Unconfigured) Get(context.Context, cachekey.Key) ([]byte, error) {
	return nil, entities.ErrBlobNotFound
}

func (Unconfigured) Put(context.Context, cachekey.Key, []byte, string) error {
	return fmt.Errorf("failed to store blob: %w", entities.ErrNotConfigured)
}

func (Unconfigured) SignedURL(context.Context, cachekey.Key, time.Duration) (string, error) {
	return "", fmt.Errorf("failed to sign URL: %w", entities.ErrNotConfigured)
}

func (Unconfigured) Configured() bool {
	return false
}
