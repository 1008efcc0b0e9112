package repositories

import (
	"context"

	"github.com/satriahrh/learnvoice/domain/entities"
)

// TextToSpeech abstracts speech synthesis providers. Implementations return MP3 bytes.
type TextToSpeech interface {
	Synthesize(ctx context.Context, req entities.SynthesisRequest) ([]byte, error)
}
