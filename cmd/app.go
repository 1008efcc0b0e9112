package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/adapters/blobstore"
	"github.com/satriahrh/learnvoice/adapters/dictionary"
	"github.com/satriahrh/learnvoice/adapters/tts"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/auth"
	"github.com/satriahrh/learnvoice/internal/config"
	"github.com/satriahrh/learnvoice/usecase"
)

// app is the wired set of adapters and services shared by the commands
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	signer  *auth.Signer
	store   repositories.BlobStore
	service *usecase.ResolutionService
	warmer  *usecase.CacheWarmer

	closers []func(ctx context.Context) error
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Server.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	a.signer = signer

	store, closeStore, err := blobstore.New(ctx, cfg.Storage, signer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, closeStore)

	synth, closeTTS := tts.New(ctx, cfg.TTS, logger)
	a.closers = append(a.closers, func(context.Context) error { return closeTTS() })

	var dict repositories.DictionaryAudio = dictionary.Disabled{}
	if cfg.Dictionary.Enabled {
		cambridge, err := dictionary.NewCambridge(dictionary.CambridgeConfig{
			BaseURL:      cfg.Dictionary.BaseURL,
			Region:       cfg.Dictionary.Region,
			UserAgent:    cfg.Dictionary.UserAgent,
			AudioTimeout: cfg.Dictionary.Timeout,
			RateLimit:    cfg.Dictionary.RateLimit,
		}, logger)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("failed to create dictionary source: %w", err)
		}
		dict = cambridge
	}

	rc := cfg.Resolver
	resolver, err := usecase.NewResolver(usecase.ResolverConfig{
		Store:      store,
		Dictionary: dict,
		TTS:        synth,
		Dedupe:     rc.Dedupe,
		Timeouts: usecase.Timeouts{
			Exists:     rc.ExistsTimeout,
			Get:        rc.GetTimeout,
			Lookup:     rc.LookupTimeout,
			Fetch:      rc.FetchTimeout,
			Synthesize: rc.SynthesizeTimeout,
			Put:        rc.PutTimeout,
			Sign:       rc.SignTimeout,
		},
	}, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.service, err = usecase.NewResolutionService(resolver, store, cfg.Storage.SignedURLTTL, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.warmer, err = usecase.NewCacheWarmer(a.service, cfg.Warmer.Interval, logger)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	logger.Info("Audio resolution pipeline ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("storageConfigured", blobstore.Configured(store)),
		zap.String("tts", cfg.TTS.Provider),
		zap.Bool("dictionary", cfg.Dictionary.Enabled),
		zap.Bool("dedupe", rc.Dedupe))

	return a, nil
}

// close releases adapters in reverse order of creation
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
