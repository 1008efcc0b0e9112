package tts

import (
	"context"
	"crypto/sha1"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
)

// mpegFrameHeader is an MPEG-1 Layer III frame sync, enough for players to sniff the type
var mpegFrameHeader = []byte{0xFF, 0xFB, 0x90, 0x64}

// MockTextToSpeech is a placeholder implementation for local development.
// The same request always yields the same bytes.
type MockTextToSpeech struct {
	logger *zap.Logger
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{
		logger: logger,
	}
}

// Synthesize implements repositories.TextToSpeech
func (t *MockTextToSpeech) Synthesize(ctx context.Context, req entities.SynthesisRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.logger.Info("Processing text-to-speech",
		zap.String("text", req.Text),
		zap.String("voice", req.Voice))

	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%g", req.Text, req.Voice, req.Speed)))
	audio := make([]byte, 0, len(mpegFrameHeader)+len(sum)+len(req.Text))
	audio = append(audio, mpegFrameHeader...)
	audio = append(audio, sum[:]...)
	audio = append(audio, req.Text...)
	return audio, nil
}
