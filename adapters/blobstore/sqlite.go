package blobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS audio_blobs (
	name TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	data BLOB NOT NULL,
	size INTEGER NOT NULL,
	created_at DATETIME NOT NULL
)`

// SQLiteStore keeps blobs in a single sqlite table
type SQLiteStore struct {
	db     *sql.DB
	signer URLSigner
	logger *zap.Logger
}

var _ repositories.BlobStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at path
func NewSQLiteStore(ctx context.Context, path string, signer URLSigner, logger *zap.Logger) (*SQLiteStore, error) {
	if signer == nil {
		return nil, errors.New("URL signer is required")
	}
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Opened sqlite blob store", zap.String("path", path))
	return &SQLiteStore{db: db, signer: signer, logger: logger}, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM audio_blobs WHERE name = ?", key.Filename()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check blob: %w", err)
	}
	return true, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key cachekey.Key) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM audio_blobs WHERE name = ?", key.Filename()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entities.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key cachekey.Key, data []byte, contentType string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audio_blobs (name, content_type, data, size, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			content_type = excluded.content_type,
			data = excluded.data,
			size = excluded.size,
			created_at = excluded.created_at`,
		key.Filename(), contentType, data, len(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write blob: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SignedURL(ctx context.Context, key cachekey.Key, ttl time.Duration) (string, error) {
	return s.signer.SignURL(key, ttl)
}

// Close closes the database
func (s *SQLiteStore) Close(ctx context.Context) error {
	return s.db.Close()
}
