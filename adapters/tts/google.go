package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
)

const (
	defaultLanguageCode = "en-US"
	defaultVolumeGainDb = 6.0
)

// GoogleConfig holds configuration for the Google Cloud TTS adapter
// Exactly one credential source is needed:
// - APIKey: a Cloud API key restricted to Text-to-Speech
// - UseADC: use Application Default Credentials instead of a key
// Optional fields with defaults:
// - LanguageCode: voice language (default: "en-US")
// - VolumeGainDb: gain applied by the provider (default: 6.0)
type GoogleConfig struct {
	APIKey       string
	UseADC       bool
	LanguageCode string
	VolumeGainDb float64
	// ClientOptions are appended after the credential option
	ClientOptions []option.ClientOption
}

// ValidateGoogleConfig validates the GoogleConfig
func ValidateGoogleConfig(config GoogleConfig) error {
	if config.APIKey == "" && !config.UseADC {
		return errors.New("google TTS API key is required unless ADC is enabled")
	}
	return nil
}

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

// GoogleTTS implements TextToSpeech with Google Cloud Text-to-Speech
type GoogleTTS struct {
	synthesize   synthesizeFunc
	close        func() error
	languageCode string
	volumeGainDb float64
	logger       *zap.Logger
}

var _ repositories.TextToSpeech = (*GoogleTTS)(nil)

// NewGoogleTTS creates a Google Cloud TTS client
func NewGoogleTTS(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleTTS, error) {
	if err := ValidateGoogleConfig(config); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	opts = append(opts, config.ClientOptions...)

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}

	g := newGoogleTTS(func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return client.SynthesizeSpeech(ctx, req)
	}, config, logger)
	g.close = client.Close
	return g, nil
}

func newGoogleTTS(fn synthesizeFunc, config GoogleConfig, logger *zap.Logger) *GoogleTTS {
	languageCode := config.LanguageCode
	if languageCode == "" {
		languageCode = defaultLanguageCode
		logger.Info("Using default language code", zap.String("languageCode", languageCode))
	}

	volumeGainDb := config.VolumeGainDb
	if volumeGainDb == 0 {
		volumeGainDb = defaultVolumeGainDb
	}

	return &GoogleTTS{
		synthesize:   fn,
		close:        func() error { return nil },
		languageCode: languageCode,
		volumeGainDb: volumeGainDb,
		logger:       logger,
	}
}

// Synthesize implements repositories.TextToSpeech
func (g *GoogleTTS) Synthesize(ctx context.Context, req entities.SynthesisRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("text cannot be empty")
	}

	g.logger.Debug("Synthesizing speech",
		zap.String("voice", req.Voice),
		zap.Float64("speed", req.Speed),
		zap.Int("textLength", len(req.Text)))

	resp, err := g.synthesize(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         req.Voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  req.Speed,
			VolumeGainDb:  g.volumeGainDb,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if len(resp.GetAudioContent()) == 0 {
		return nil, errors.New("provider returned no audio content")
	}
	return resp.GetAudioContent(), nil
}

// Close releases the underlying gRPC connection
func (g *GoogleTTS) Close() error {
	return g.close()
}
