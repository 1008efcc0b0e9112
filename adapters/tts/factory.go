package tts

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/config"
)

// New builds the provider selected by cfg.Provider. Missing credentials never fail
// start-up; they produce an Unconfigured provider and a warning instead.
func New(ctx context.Context, cfg config.TTSConfig, logger *zap.Logger) (repositories.TextToSpeech, func() error) {
	noop := func() error { return nil }

	switch cfg.Provider {
	case config.ProviderGoogle:
		g, err := NewGoogleTTS(ctx, GoogleConfig{
			APIKey:       cfg.GoogleKey(),
			UseADC:       cfg.GoogleUseADC,
			LanguageCode: cfg.GoogleLanguage,
			VolumeGainDb: cfg.GoogleVolumeGainDb,
		}, logger)
		if err != nil {
			logger.Warn("Google TTS is not configured", zap.Error(err))
			return Unconfigured{Reason: err.Error()}, noop
		}
		logger.Info("Using Google Cloud text-to-speech")
		return g, g.Close

	case config.ProviderElevenLabs:
		e, err := NewElevenLabsTTS(ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			VoiceID: cfg.ElevenLabsVoiceID,
			ModelID: cfg.ElevenLabsModelID,
		}, logger)
		if err != nil {
			logger.Warn("Eleven Labs TTS is not configured", zap.Error(err))
			return Unconfigured{Reason: err.Error()}, noop
		}
		logger.Info("Using Eleven Labs text-to-speech")
		return e, noop

	case config.ProviderMock:
		logger.Warn("Using mock text-to-speech, audio is not real speech")
		return NewMockTextToSpeech(logger), noop
	}

	logger.Warn("Text-to-speech provider disabled", zap.String("provider", cfg.Provider))
	return Unconfigured{Reason: "provider " + cfg.Provider}, noop
}
