package dictionary

import (
	"context"
	"fmt"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
)

// Disabled never finds dictionary audio
type Disabled struct{}

var _ repositories.DictionaryAudio = Disabled{}

func (Disabled) Lookup(context.Context, string) (*entities.AudioReference, error) {
	return nil, nil
}

func (Disabled) Fetch(context.Context, entities.AudioReference) ([]byte, error) {
	return nil, fmt.Errorf("dictionary disabled: %w", entities.ErrSourceUnavailable)
}
