package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultOutputFormat = "mp3_44100_128"          // MP3 so results can be stored and concatenated
	defaultModelID      = "eleven_multilingual_v2" // Default model ID
	defaultStability    = 0.5                      // Default voice stability
	defaultClarity      = 0.75                     // Default voice clarity/similarity_boost
	defaultTimeout      = 30 * time.Second

	minSpeed = 0.7
	maxSpeed = 1.2
)

var elevenLabsVoicePattern = regexp.MustCompile(`^[A-Za-z0-9]{20}$`)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - VoiceID: Voice used when the request names a non Eleven Labs voice (default: Rachel)
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
// - Timeout: Request timeout (default: 30s)
type ElevenLabsConfig struct {
	APIKey     string
	APIBaseURL string
	VoiceID    string
	ModelID    string
	Stability  float64
	Clarity    float64
	Timeout    time.Duration
}

// ElevenLabsTTS implements TextToSpeech using Eleven Labs API
type ElevenLabsTTS struct {
	apiKey     string
	apiBaseURL string
	voiceID    string
	modelID    string
	stability  float64
	clarity    float64
	client     *http.Client
	logger     *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability != 0 && (config.Stability < 0 || config.Stability > 1) {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity != 0 && (config.Clarity < 0 || config.Clarity > 1) {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := config.APIBaseURL
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}

	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &ElevenLabsTTS{
		apiKey:     config.APIKey,
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		voiceID:    voiceID,
		modelID:    modelID,
		stability:  stability,
		clarity:    clarity,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Synthesize implements repositories.TextToSpeech
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, req entities.SynthesisRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := e.resolveVoice(req.Voice)
	e.logger.Debug("Converting text to speech",
		zap.String("voiceID", voiceID),
		zap.String("modelID", e.modelID),
		zap.Float64("speed", req.Speed))

	requestBody, err := json.Marshal(ElevenLabsRequest{
		Text:                   req.Text,
		ModelID:                e.modelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
			Speed:           clampSpeed(req.Speed),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s&enable_logging=false",
		e.apiBaseURL, voiceID, defaultOutputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", entities.ContentTypeMPEG)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("eleven labs API returned error %d: %s", resp.StatusCode, string(errorBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("eleven labs API returned no audio")
	}
	return audio, nil
}

// resolveVoice keeps Eleven Labs voice ids and maps anything else to the configured voice
func (e *ElevenLabsTTS) resolveVoice(voice string) string {
	if elevenLabsVoicePattern.MatchString(voice) {
		return voice
	}
	return e.voiceID
}

func clampSpeed(speed float64) float64 {
	switch {
	case speed <= 0:
		return 1.0
	case speed < minSpeed:
		return minSpeed
	case speed > maxSpeed:
		return maxSpeed
	}
	return speed
}
