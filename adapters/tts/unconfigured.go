package tts

import (
	"context"
	"fmt"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
)

// Unconfigured stands in when provider credentials are missing
type Unconfigured struct {
	Reason string
}

var _ repositories.TextToSpeech = Unconfigured{}

func (u Unconfigured) Synthesize(context.Context, entities.SynthesisRequest) ([]byte, error) {
	if u.Reason != "" {
		return nil, fmt.Errorf("text-to-speech unavailable (%s): %w", u.Reason, entities.ErrNotConfigured)
	}
	return nil, fmt.Errorf("text-to-speech unavailable: %w", entities.ErrNotConfigured)
}
