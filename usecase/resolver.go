package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

// Timeouts bounds every external call the resolver makes
type Timeouts struct {
	Exists     time.Duration
	Get        time.Duration
	Lookup     time.Duration
	Fetch      time.Duration
	Synthesize time.Duration
	Put        time.Duration
	Sign       time.Duration
}

// DefaultTimeouts returns the per-step limits used when none are configured
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Exists:     5 * time.Second,
		Get:        10 * time.Second,
		Lookup:     5 * time.Second,
		Fetch:      10 * time.Second,
		Synthesize: 15 * time.Second,
		Put:        15 * time.Second,
		Sign:       5 * time.Second,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	d := DefaultTimeouts()
	if t.Exists <= 0 {
		t.Exists = d.Exists
	}
	if t.Get <= 0 {
		t.Get = d.Get
	}
	if t.Lookup <= 0 {
		t.Lookup = d.Lookup
	}
	if t.Fetch <= 0 {
		t.Fetch = d.Fetch
	}
	if t.Synthesize <= 0 {
		t.Synthesize = d.Synthesize
	}
	if t.Put <= 0 {
		t.Put = d.Put
	}
	if t.Sign <= 0 {
		t.Sign = d.Sign
	}
	return t
}

// ResolverConfig wires the resolver's collaborators. Dictionary may be nil.
type ResolverConfig struct {
	Store      repositories.BlobStore
	Dictionary repositories.DictionaryAudio
	TTS        repositories.TextToSpeech
	Timeouts   Timeouts
	// Dedupe collapses concurrent resolutions of the same key into one
	Dedupe bool
}

// Resolution is the outcome of resolving one request
type Resolution struct {
	Key    cachekey.Key
	Audio  entities.AudioBlob
	Source entities.AudioSource
	// Cached is true when the bytes came straight from the blob store
	Cached bool
	// Persisted is false when the bytes could not be written to the blob store
	Persisted bool
}

// Resolver turns a request into MP3 bytes: cache, two-word concatenation,
// dictionary audio, then synthesis.
type Resolver struct {
	store      repositories.BlobStore
	dictionary repositories.DictionaryAudio
	tts        repositories.TextToSpeech
	timeouts   Timeouts
	group      *singleflight.Group
	logger     *zap.Logger
}

// resolveMode bounds decomposition to a single level
type resolveMode int

const (
	modeFull resolveMode = iota
	modeLeaf
)

// NewResolver creates a resolver
func NewResolver(config ResolverConfig, logger *zap.Logger) (*Resolver, error) {
	if config.Store == nil {
		return nil, errors.New("blob store is required")
	}
	if config.TTS == nil {
		return nil, errors.New("text-to-speech provider is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	r := &Resolver{
		store:      config.Store,
		dictionary: config.Dictionary,
		tts:        config.TTS,
		timeouts:   config.Timeouts.withDefaults(),
		logger:     logger,
	}
	if config.Dedupe {
		r.group = &singleflight.Group{}
	}
	return r, nil
}

// Resolve returns audio for req. Only ErrEmptyInput and ErrSynthesisFailure are surfaced.
func (r *Resolver) Resolve(ctx context.Context, req entities.ResolutionRequest) (*Resolution, error) {
	req, err := entities.NewResolutionRequest(req.Text, req.Voice, req.Speed)
	if err != nil {
		return nil, err
	}
	return r.resolve(ctx, req, modeFull)
}

func (r *Resolver) resolve(ctx context.Context, req entities.ResolutionRequest, mode resolveMode) (*Resolution, error) {
	key := cachekey.Derive(req.Text, req.Voice, req.Speed)
	if r.group == nil {
		return r.run(ctx, req, key, mode)
	}

	// shared work must not die with whichever caller started it
	ch := r.group.DoChan(key.String(), func() (interface{}, error) {
		return r.run(context.WithoutCancel(ctx), req, key, mode)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		resolution := *res.Val.(*Resolution)
		return &resolution, nil
	case <-ctx.Done():
		return nil, &entities.ResolutionError{Kind: entities.ErrSynthesisFailure, Op: "wait", Err: ctx.Err()}
	}
}

func (r *Resolver) run(ctx context.Context, req entities.ResolutionRequest, key cachekey.Key, mode resolveMode) (*Resolution, error) {
	logger := r.logger.With(zap.String("key", key.String()))

	if data, ok := r.probeCache(ctx, key, logger); ok {
		logger.Debug("Cache hit")
		return &Resolution{
			Key:       key,
			Audio:     entities.NewMPEGBlob(data),
			Source:    entities.SourceCache,
			Cached:    true,
			Persisted: true,
		}, nil
	}

	var (
		data   []byte
		source entities.AudioSource
	)

	if tokens := cachekey.Split(req.Text); mode == modeFull && len(tokens) == 2 {
		data = r.concatenate(ctx, req, tokens, logger)
		source = entities.SourceConcatenation
	}

	if data == nil && cachekey.IsSingleWord(req.Text) {
		data = r.fromDictionary(ctx, strings.ToLower(req.Text), logger)
		source = entities.SourceDictionary
	}

	if data == nil {
		var err error
		data, err = r.synthesize(ctx, req)
		if err != nil {
			logger.Warn("Synthesis failed", zap.Error(err))
			return nil, err
		}
		source = entities.SourceSynthesis
	}

	persisted := r.persist(ctx, key, data, logger)
	logger.Info("Resolved audio",
		zap.String("source", string(source)),
		zap.Int("bytes", len(data)),
		zap.Bool("persisted", persisted))

	return &Resolution{
		Key:       key,
		Audio:     entities.NewMPEGBlob(data),
		Source:    source,
		Persisted: persisted,
	}, nil
}

// probeCache treats every store error as a miss
func (r *Resolver) probeCache(ctx context.Context, key cachekey.Key, logger *zap.Logger) ([]byte, bool) {
	existsCtx, cancel := context.WithTimeout(ctx, r.timeouts.Exists)
	ok, err := r.store.Exists(existsCtx, key)
	cancel()
	if err != nil {
		logger.Warn("Cache existence check failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	getCtx, cancel := context.WithTimeout(ctx, r.timeouts.Get)
	defer cancel()
	data, err := r.store.Get(getCtx, key)
	if err != nil {
		logger.Warn("Cache read failed", zap.Error(err))
		return nil, false
	}
	return data, true
}

// concatenate resolves both tokens as leaves in parallel. It returns nil unless both succeed.
func (r *Resolver) concatenate(ctx context.Context, req entities.ResolutionRequest, tokens []string, logger *zap.Logger) []byte {
	halves := make([]*Resolution, len(tokens))

	var g errgroup.Group
	for i, token := range tokens {
		i, token := i, token
		g.Go(func() error {
			res, err := r.resolve(ctx, req.WithText(token), modeLeaf)
			if err != nil {
				return fmt.Errorf("failed to resolve %q: %w", token, err)
			}
			halves[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Info("Two-word decomposition abandoned", zap.Error(err))
		return nil
	}

	data := make([]byte, 0, len(halves[0].Audio.Data)+len(halves[1].Audio.Data))
	for _, half := range halves {
		data = append(data, half.Audio.Data...)
	}
	return data
}

// fromDictionary returns nil on any miss or failure
func (r *Resolver) fromDictionary(ctx context.Context, word string, logger *zap.Logger) []byte {
	if r.dictionary == nil {
		return nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.timeouts.Lookup)
	ref, err := r.dictionary.Lookup(lookupCtx, word)
	cancel()
	if err != nil {
		logger.Info("Dictionary lookup failed", zap.String("word", word), zap.Error(err))
		return nil
	}
	if ref == nil || ref.URL == "" {
		logger.Debug("No dictionary audio", zap.String("word", word))
		return nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.timeouts.Fetch)
	defer cancel()
	data, err := r.dictionary.Fetch(fetchCtx, *ref)
	if err != nil {
		logger.Info("Dictionary audio fetch failed", zap.String("url", ref.URL), zap.Error(err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func (r *Resolver) synthesize(ctx context.Context, req entities.ResolutionRequest) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Synthesize)
	defer cancel()

	data, err := r.tts.Synthesize(ctx, entities.SynthesisRequest{
		Text:  req.Text,
		Voice: req.Voice,
		Speed: req.Speed,
	})
	if err != nil {
		return nil, &entities.ResolutionError{Kind: entities.ErrSynthesisFailure, Op: "synthesize", Err: err}
	}
	if len(data) == 0 {
		return nil, &entities.ResolutionError{Kind: entities.ErrSynthesisFailure, Op: "synthesize", Err: errors.New("no audio payload")}
	}
	return data, nil
}

// persist reports whether the write succeeded. A failed write never discards the audio.
func (r *Resolver) persist(ctx context.Context, key cachekey.Key, data []byte, logger *zap.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeouts.Put)
	defer cancel()

	if err := r.store.Put(ctx, key, data, entities.ContentTypeMPEG); err != nil {
		logger.Warn("Failed to persist audio", zap.Error(err))
		return false
	}
	return true
}
