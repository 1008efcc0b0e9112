package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

// DefaultURLTTL keeps signed URLs valid for ten years
const DefaultURLTTL = 315360000 * time.Second

// Result is a retrievable reference to resolved audio
type Result struct {
	URL    string               `json:"url"`
	Key    cachekey.Key         `json:"key"`
	Source entities.AudioSource `json:"source"`
	Cached bool                 `json:"cached"`
	// Persisted is false when the store rejected the write and URL is an inline data URL
	Persisted bool               `json:"persisted"`
	Audio     entities.AudioBlob `json:"-"`
}

// ResolutionService wraps the resolver with URL signing
type ResolutionService struct {
	resolver    *Resolver
	store       repositories.BlobStore
	ttl         time.Duration
	signTimeout time.Duration
	logger      *zap.Logger
}

// NewResolutionService creates the service. A non-positive ttl selects DefaultURLTTL.
func NewResolutionService(resolver *Resolver, store repositories.BlobStore, ttl time.Duration, logger *zap.Logger) (*ResolutionService, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if store == nil {
		return nil, errors.New("blob store is required")
	}
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &ResolutionService{
		resolver:    resolver,
		store:       store,
		ttl:         ttl,
		signTimeout: resolver.timeouts.Sign,
		logger:      logger,
	}, nil
}

// ResolveToURL resolves (text, voice, speed) and returns a URL for the audio
func (s *ResolutionService) ResolveToURL(ctx context.Context, text, voice string, speed float64) (*Result, error) {
	req, err := entities.NewResolutionRequest(text, voice, speed)
	if err != nil {
		return nil, err
	}
	key := cachekey.Derive(req.Text, req.Voice, req.Speed)

	if s.cached(ctx, key) {
		url, err := s.sign(ctx, key)
		if err != nil {
			return nil, err
		}
		return &Result{URL: url, Key: key, Source: entities.SourceCache, Cached: true, Persisted: true}, nil
	}

	resolution, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Key:       resolution.Key,
		Source:    resolution.Source,
		Cached:    resolution.Cached,
		Persisted: resolution.Persisted,
		Audio:     resolution.Audio,
	}

	if !resolution.Persisted {
		s.logger.Warn("Serving unpersisted audio inline", zap.String("key", key.String()))
		result.URL = DataURL(resolution.Audio)
		return result, nil
	}

	result.URL, err = s.sign(ctx, resolution.Key)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// IsCached reports whether audio for the request is already stored
func (s *ResolutionService) IsCached(ctx context.Context, text, voice string, speed float64) (bool, error) {
	req, err := entities.NewResolutionRequest(text, voice, speed)
	if err != nil {
		return false, err
	}
	return s.cached(ctx, cachekey.Derive(req.Text, req.Voice, req.Speed)), nil
}

func (s *ResolutionService) cached(ctx context.Context, key cachekey.Key) bool {
	ctx, cancel := context.WithTimeout(ctx, s.resolver.timeouts.Exists)
	defer cancel()

	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		s.logger.Warn("Cache existence check failed", zap.String("key", key.String()), zap.Error(err))
		return false
	}
	return ok
}

func (s *ResolutionService) sign(ctx context.Context, key cachekey.Key) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.signTimeout)
	defer cancel()

	url, err := s.store.SignedURL(ctx, key, s.ttl)
	if err != nil {
		return "", &entities.ResolutionError{Kind: entities.ErrStorageFailure, Op: "sign", Err: err}
	}
	if url == "" {
		return "", &entities.ResolutionError{Kind: entities.ErrStorageFailure, Op: "sign", Err: errors.New("empty URL")}
	}
	return url, nil
}

// DataURL inlines a blob as a data: URL
func DataURL(blob entities.AudioBlob) string {
	contentType := blob.ContentType
	if contentType == "" {
		contentType = entities.ContentTypeMPEG
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data)
}
