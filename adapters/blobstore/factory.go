package blobstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	mongoadapter "github.com/satriahrh/learnvoice/adapters/mongo"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/config"
)

// CloseFunc releases resources held by a store
type CloseFunc func(ctx context.Context) error

func noopClose(context.Context) error { return nil }

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig, signer URLSigner, logger *zap.Logger) (repositories.BlobStore, CloseFunc, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		store, err := NewMemoryStore(signer)
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("Using in-memory blob store, cached audio is lost on restart")
		return store, noopClose, nil

	case config.StorageSQLite:
		store, err := NewSQLiteStore(ctx, cfg.SQLitePath, signer, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.StorageMongo:
		client, err := mongoadapter.NewClient(ctx, mongoadapter.ClientConfig{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := mongoadapter.NewBlobStore(client.Database, cfg.MongoBucket, signer, logger)
		if err != nil {
			_ = client.Close(ctx)
			return nil, nil, err
		}
		return store, client.Close, nil

	case config.StorageS3:
		store, err := NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, noopClose, nil

	case config.StorageNone, "":
		logger.Warn("Blob storage is not configured, audio will not be cached")
		return Unconfigured{}, noopClose, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// Configured reports whether store persists anything
func Configured(store repositories.BlobStore) bool {
	if r, ok := store.(repositories.ConfigurationReporter); ok {
		return r.Configured()
	}
	return store != nil
}
