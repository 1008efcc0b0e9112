package repositories

import (
	"context"

	"github.com/satriahrh/learnvoice/domain/entities"
)

// DictionaryAudio finds pre-recorded pronunciations for single words
type DictionaryAudio interface {
	// Lookup returns nil, nil when the dictionary has no audio for the word
	Lookup(ctx context.Context, word string) (*entities.AudioReference, error)
	// Fetch downloads the referenced audio
	Fetch(ctx context.Context, ref entities.AudioReference) ([]byte, error)
}
