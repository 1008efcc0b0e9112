package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/learnvoice/adapters/blobstore"
	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/domain/repositories"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

func newService(t *testing.T, store repositories.BlobStore, provider repositories.TextToSpeech, dict repositories.DictionaryAudio) *ResolutionService {
	t.Helper()
	logger := zaptest.NewLogger(t)
	r, err := NewResolver(ResolverConfig{Store: store, Dictionary: dict, TTS: provider}, logger)
	require.NoError(t, err)
	s, err := NewResolutionService(r, store, 0, logger)
	require.NoError(t, err)
	return s
}

func TestResolveToURL_Miss(t *testing.T) {
	store := newFakeStore()
	provider := &fakeTTS{}
	s := newService(t, store, provider, nil)

	res, err := s.ResolveToURL(context.Background(), "  see you soon ", "", 0)
	require.NoError(t, err)

	key := cachekey.Derive("see you soon", entities.DefaultVoice, entities.DefaultSpeed)
	assert.Equal(t, key, res.Key)
	assert.Equal(t, "https://cdn.test/"+key.Filename(), res.URL)
	assert.Equal(t, entities.SourceSynthesis, res.Source)
	assert.False(t, res.Cached)
	assert.True(t, res.Persisted)
	assert.Equal(t, []string{"see you soon"}, provider.received())
}

func TestResolveToURL_FastPath(t *testing.T) {
	store := newFakeStore()
	provider := &fakeTTS{}
	s := newService(t, store, provider, nil)

	key := cachekey.Derive("hello", "", 0)
	store.seed(key, []byte("cached"))

	res, err := s.ResolveToURL(context.Background(), "HELLO", "en-US-Wavenet-C", 1.5)
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.Equal(t, entities.SourceCache, res.Source)
	assert.Equal(t, "https://cdn.test/"+key.Filename(), res.URL)
	assert.Zero(t, store.gets.Load(), "fast path must not download the blob")
	assert.Zero(t, provider.calls.Load())
}

func TestResolveToURL_EmptyInput(t *testing.T) {
	store := newFakeStore()
	s := newService(t, store, &fakeTTS{}, nil)

	_, err := s.ResolveToURL(context.Background(), " ", entities.DefaultVoice, 1)
	assert.ErrorIs(t, err, entities.ErrEmptyInput)
	assert.Zero(t, store.exists.Load())
}

func TestResolveToURL_SigningFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fakeStore)
		cached bool
	}{
		{"sign error on miss", func(s *fakeStore) { s.signErr = errors.New("denied") }, false},
		{"empty url on miss", func(s *fakeStore) { s.signEmpty = true }, false},
		{"sign error on hit", func(s *fakeStore) { s.signErr = errors.New("denied") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.mutate(store)
			if tt.cached {
				store.seed(cachekey.Derive("see you soon", entities.DefaultVoice, 1), []byte("x"))
			}
			s := newService(t, store, &fakeTTS{}, nil)

			_, err := s.ResolveToURL(context.Background(), "see you soon", "", 1)
			assert.ErrorIs(t, err, entities.ErrStorageFailure)
		})
	}
}

func TestResolveToURL_UnpersistedAudioIsInlined(t *testing.T) {
	s := newService(t, blobstore.Unconfigured{}, &fakeTTS{}, nil)

	res, err := s.ResolveToURL(context.Background(), "see you soon", "", 1)
	require.NoError(t, err)

	assert.False(t, res.Persisted)
	require.True(t, strings.HasPrefix(res.URL, "data:audio/mpeg;base64,"))
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(res.URL, "data:audio/mpeg;base64,"))
	require.NoError(t, err)
	assert.Equal(t, ttsBytes("see you soon"), decoded)
}

func TestResolveToURL_SynthesisFailure(t *testing.T) {
	provider := &fakeTTS{fail: map[string]bool{"qwzx": true}}
	s := newService(t, newFakeStore(), provider, &fakeDictionary{})

	_, err := s.ResolveToURL(context.Background(), "qwzx", "", 1)
	assert.ErrorIs(t, err, entities.ErrSynthesisFailure)
	assert.Equal(t, "synthesis_failure", entities.ErrorCode(err))
}

func TestResolveToURL_WithMemoryStore(t *testing.T) {
	signer := &stubSigner{}
	store, err := blobstore.NewMemoryStore(signer)
	require.NoError(t, err)
	s := newService(t, store, &fakeTTS{}, &fakeDictionary{audio: map[string][]byte{"cat": []byte("meow")}})

	first, err := s.ResolveToURL(context.Background(), "cat", "", 1)
	require.NoError(t, err)
	assert.Equal(t, entities.SourceDictionary, first.Source)

	second, err := s.ResolveToURL(context.Background(), "cat", "", 1)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.URL, second.URL)
}

func TestIsCached(t *testing.T) {
	store := newFakeStore()
	s := newService(t, store, &fakeTTS{}, nil)
	store.seed(cachekey.Derive("hello", "", 0), []byte("x"))

	ok, err := s.IsCached(context.Background(), "Hello", "any", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsCached(context.Background(), "world", "any", 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.IsCached(context.Background(), "", "any", 2)
	assert.ErrorIs(t, err, entities.ErrEmptyInput)
}

func TestDataURL(t *testing.T) {
	assert.Equal(t, "data:audio/mpeg;base64,AQID", DataURL(entities.AudioBlob{Data: []byte{1, 2, 3}}))
}
