package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/internal/cachekey"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[cachekey.Key][]byte

	existsErr error
	getErr    error
	putErr    error
	signErr   error
	signEmpty bool

	exists atomic.Int32
	gets   atomic.Int32
	puts   atomic.Int32
	signs  atomic.Int32
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[cachekey.Key][]byte)}
}

func (s *fakeStore) Exists(ctx context.Context, key cachekey.Key) (bool, error) {
	s.exists.Add(1)
	if s.existsErr != nil {
		return false, s.existsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *fakeStore) Get(ctx context.Context, key cachekey.Key) ([]byte, error) {
	s.gets.Add(1)
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, entities.ErrBlobNotFound
	}
	return data, nil
}

func (s *fakeStore) Put(ctx context.Context, key cachekey.Key, data []byte, contentType string) error {
	s.puts.Add(1)
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *fakeStore) SignedURL(ctx context.Context, key cachekey.Key, ttl time.Duration) (string, error) {
	s.signs.Add(1)
	if s.signErr != nil {
		return "", s.signErr
	}
	if s.signEmpty {
		return "", nil
	}
	return "https://cdn.test/" + key.Filename(), nil
}

func (s *fakeStore) object(key cachekey.Key) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

func (s *fakeStore) seed(key cachekey.Key, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
}

type fakeDictionary struct {
	audio     map[string][]byte
	lookupErr error
	fetchErr  error

	lookups atomic.Int32
	fetches atomic.Int32
}

func (d *fakeDictionary) Lookup(ctx context.Context, word string) (*entities.AudioReference, error) {
	d.lookups.Add(1)
	if d.lookupErr != nil {
		return nil, d.lookupErr
	}
	if _, ok := d.audio[word]; !ok {
		return nil, nil
	}
	return &entities.AudioReference{URL: "https://dict.test/us_" + word + ".mp3", Region: "us"}, nil
}

func (d *fakeDictionary) Fetch(ctx context.Context, ref entities.AudioReference) ([]byte, error) {
	d.fetches.Add(1)
	if d.fetchErr != nil {
		return nil, d.fetchErr
	}
	for word, data := range d.audio {
		if ref.URL == "https://dict.test/us_"+word+".mp3" {
			return data, nil
		}
	}
	return nil, entities.ErrSourceUnavailable
}

func (d *fakeDictionary) calls() int32 {
	return d.lookups.Load() + d.fetches.Load()
}

type fakeTTS struct {
	mu    sync.Mutex
	texts []string
	fail  map[string]bool
	// gate, when set, blocks every call until it is closed
	gate  chan struct{}
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeTTS) Synthesize(ctx context.Context, req entities.SynthesisRequest) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.texts = append(f.texts, req.Text)
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail[req.Text] {
		return nil, errors.New("provider error")
	}
	return ttsBytes(req.Text), nil
}

func (f *fakeTTS) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func ttsBytes(text string) []byte {
	return []byte("tts:" + text + ";")
}

type stubSigner struct{}

func (*stubSigner) SignURL(key cachekey.Key, ttl time.Duration) (string, error) {
	return "http://localhost/api/v1/audio/" + key.Filename() + "?token=test", nil
}
