package blobstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

type memoryObject struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// MemoryStore keeps blobs in process memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[cachekey.Key]memoryObject
	signer  URLSigner
}

var _ repositories.BlobStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(signer URLSigner) (*MemoryStore, error) {
	if signer == nil {
		return nil, errors.New("URL signer is required")
	}
	return &MemoryStore{
		objects: make(map[cachekey.Key]memoryObject),
		signer:  signer,
	}, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, key cachekey.Key) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, entities.ErrBlobNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key cachekey.Key, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		createdAt:   time.Now(),
	}
	return nil
}

func (s *MemoryStore) SignedURL(ctx context.Context, key cachekey.Key, ttl time.Duration) (string, error) {
	return s.signer.SignURL(key, ttl)
}

// Len returns the number of stored objects
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
