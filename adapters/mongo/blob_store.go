package mongo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

const defaultBucketName = "audio_cache"

// URLSigner builds download URLs for objects served by this process
type URLSigner interface {
	SignURL(key cachekey.Key, ttl time.Duration) (string, error)
}

// BlobStore keeps audio in a GridFS bucket. Each object name has at most one live revision.
type BlobStore struct {
	bucket *gridfs.Bucket
	files  *mongo.Collection
	signer URLSigner
	logger *zap.Logger
}

var _ repositories.BlobStore = (*BlobStore)(nil)

// NewBlobStore creates a GridFS backed blob store. An empty bucketName selects "audio_cache".
func NewBlobStore(db *mongo.Database, bucketName string, signer URLSigner, logger *zap.Logger) (*BlobStore, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if signer == nil {
		return nil, errors.New("URL signer is required")
	}
	if bucketName == "" {
		bucketName = defaultBucketName
	}

	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, fmt.Errorf("failed to open GridFS bucket: %w", err)
	}

	return &BlobStore{
		bucket: bucket,
		files:  db.Collection(bucketName + ".files"),
		signer: signer,
		logger: logger,
	}, nil
}

// Exists implements repositories.BlobStore
func (s *BlobStore) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	n, err := s.files.CountDocuments(ctx, bson.M{"filename": key.Filename()}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check blob: %w", err)
	}
	return n > 0, nil
}

// Get implements repositories.BlobStore
func (s *BlobStore) Get(ctx context.Context, key cachekey.Key) ([]byte, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(key.Filename())
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, entities.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	defer stream.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set read deadline: %w", err)
		}
	}

	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// Put implements repositories.BlobStore. Older revisions of the same name are removed
// after the new one is written so readers never see a gap.
func (s *BlobStore) Put(ctx context.Context, key cachekey.Key, data []byte, contentType string) error {
	name := key.Filename()
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"content_type": contentType,
		"created_at":   time.Now().UTC(),
	})

	stream, err := s.bucket.OpenUploadStream(name, opts)
	if err != nil {
		return fmt.Errorf("failed to open upload stream: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := stream.SetWriteDeadline(deadline); err != nil {
			_ = stream.Abort()
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}
	if _, err := io.Copy(stream, bytes.NewReader(data)); err != nil {
		_ = stream.Abort()
		return fmt.Errorf("failed to upload blob: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to finish upload: %w", err)
	}

	s.pruneRevisions(ctx, name, stream.FileID)
	return nil
}

func (s *BlobStore) pruneRevisions(ctx context.Context, name string, keep interface{}) {
	cursor, err := s.bucket.FindContext(ctx, bson.M{"filename": name, "_id": bson.M{"$ne": keep}})
	if err != nil {
		s.logger.Warn("Failed to list old revisions", zap.String("name", name), zap.Error(err))
		return
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var file struct {
			ID interface{} `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			continue
		}
		if err := s.bucket.DeleteContext(ctx, file.ID); err != nil {
			s.logger.Warn("Failed to delete old revision", zap.String("name", name), zap.Error(err))
		}
	}
}

// SignedURL implements repositories.BlobStore
func (s *BlobStore) SignedURL(ctx context.Context, key cachekey.Key, ttl time.Duration) (string, error) {
	return s.signer.SignURL(key, ttl)
}
