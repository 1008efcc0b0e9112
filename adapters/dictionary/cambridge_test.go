package dictionary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/learnvoice/domain/entities"
)

const helloPage = `<html><body>
<span class="uk dpron-i">
  <span class="daud">
    <audio class="hdn"><source type="audio/mpeg" src="/media/english/uk_pron/u/ukh/ukhef/ukheft_029.mp3"/>
    <source type="audio/ogg" src="/media/english/uk_pron_ogg/u/ukh/ukhef/ukheft_029.ogg"/></audio>
  </span>
</span>
<span class="us dpron-i">
  <span class="daud">
    <audio class="hdn"><source type="audio/mpeg" src="/media/english/us_pron/h/hel/hello/hello.mp3"/></audio>
  </span>
</span>
</body></html>`

const buttonPage = `<html><body>
<div class="audio_play_button" data-src-mp3="/media/english/uk_pron/x/xyz.mp3" data-src-ogg="/media/x.ogg"></div>
<div class="audio" data-src="https://cdn.example.com/fallback.wav"></div>
</body></html>`

const scriptPage = `<html><head><script>var pron = {"file": "https://cdn.example.com/audio/word.mp3?x=1"};</script></head><body></body></html>`

func newTestServer(t *testing.T, pages map[string]string, audio map[string][]byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dictionary/english/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("Expected User-Agent header")
		}
		word := strings.TrimPrefix(r.URL.Path, "/dictionary/english/")
		page, ok := pages[word]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(page))
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		data, ok := audio[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(data)
	})
	return httptest.NewServer(mux)
}

func newTestCambridge(t *testing.T, baseURL string) *Cambridge {
	t.Helper()
	c, err := NewCambridge(CambridgeConfig{BaseURL: baseURL, RateLimit: 1000}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewCambridge failed: %v", err)
	}
	return c
}

func TestLookupPrefersUSMp3(t *testing.T) {
	server := newTestServer(t, map[string]string{"hello": helloPage}, nil)
	defer server.Close()

	c := newTestCambridge(t, server.URL)
	ref, err := c.Lookup(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if ref == nil {
		t.Fatal("Expected a reference")
	}

	want := server.URL + "/media/english/us_pron/h/hel/hello/hello.mp3"
	if ref.URL != want {
		t.Errorf("Expected %s, got %s", want, ref.URL)
	}
	if ref.Strategy != "source_tag" {
		t.Errorf("Expected source_tag strategy, got %s", ref.Strategy)
	}
}

func TestLookupMissingPage(t *testing.T) {
	server := newTestServer(t, map[string]string{}, nil)
	defer server.Close()

	ref, err := newTestCambridge(t, server.URL).Lookup(context.Background(), "qwzx")
	if err != nil || ref != nil {
		t.Errorf("Expected miss without error, got ref=%v err=%v", ref, err)
	}
}

func TestLookupPageWithoutAudio(t *testing.T) {
	server := newTestServer(t, map[string]string{"silent": "<html><body><p>no audio</p></body></html>"}, nil)
	defer server.Close()

	ref, err := newTestCambridge(t, server.URL).Lookup(context.Background(), "silent")
	if err != nil || ref != nil {
		t.Errorf("Expected miss without error, got ref=%v err=%v", ref, err)
	}
}

func TestLookupUnreachable(t *testing.T) {
	server := newTestServer(t, nil, nil)
	url := server.URL
	server.Close()

	_, err := newTestCambridge(t, url).Lookup(context.Background(), "hello")
	if !errors.Is(err, entities.ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetch(t *testing.T) {
	audio := map[string][]byte{
		"/media/ok.mp3":    []byte("ID3-audio"),
		"/media/empty.mp3": {},
	}
	server := newTestServer(t, nil, audio)
	defer server.Close()

	c := newTestCambridge(t, server.URL)
	ctx := context.Background()

	data, err := c.Fetch(ctx, entities.AudioReference{URL: server.URL + "/media/ok.mp3"})
	if err != nil || string(data) != "ID3-audio" {
		t.Errorf("Expected audio bytes, got %q (err=%v)", data, err)
	}

	tests := []string{"/media/empty.mp3", "/media/missing.mp3"}
	for _, path := range tests {
		if _, err := c.Fetch(ctx, entities.AudioReference{URL: server.URL + path}); !errors.Is(err, entities.ErrSourceUnavailable) {
			t.Errorf("Fetch(%s): expected ErrSourceUnavailable, got %v", path, err)
		}
	}
}

func parse(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatalf("Failed to parse page: %v", err)
	}
	return doc
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy ExtractionStrategy
		page     string
		want     []string
	}{
		{
			name:     "source tags",
			strategy: SourceTagStrategy{},
			page:     helloPage,
			want: []string{
				"/media/english/uk_pron/u/ukh/ukhef/ukheft_029.mp3",
				"/media/english/uk_pron_ogg/u/ukh/ukhef/ukheft_029.ogg",
				"/media/english/us_pron/h/hel/hello/hello.mp3",
			},
		},
		{
			name:     "play buttons",
			strategy: PlayButtonStrategy{},
			page:     buttonPage,
			want:     []string{"/media/english/uk_pron/x/xyz.mp3", "https://cdn.example.com/fallback.wav"},
		},
		{
			name:     "inline text",
			strategy: InlineTextStrategy{},
			page:     scriptPage,
			want:     []string{"https://cdn.example.com/audio/word.mp3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.strategy.Extract(parse(t, tt.page))
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Candidate %d: expected %s, got %s", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestSelectCandidate(t *testing.T) {
	c := newTestCambridge(t, "https://dictionary.cambridge.org")

	tests := []struct {
		name       string
		candidates []candidate
		want       string
	}{
		{
			name: "region mp3 wins",
			candidates: []candidate{
				{url: "https://x/uk_pron/a.mp3"},
				{url: "https://x/us_pron/a.mp3"},
			},
			want: "https://x/us_pron/a.mp3",
		},
		{
			name: "any mp3 next",
			candidates: []candidate{
				{url: "https://x/us_pron/a.ogg"},
				{url: "https://x/uk_pron/a.mp3"},
			},
			want: "https://x/uk_pron/a.mp3",
		},
		{
			name:       "first otherwise",
			candidates: []candidate{{url: "https://x/a.ogg"}, {url: "https://x/b.wav"}},
			want:       "https://x/a.ogg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.selectCandidate(tt.candidates); got.URL != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got.URL)
			}
		})
	}
}

func TestCollectDeduplicatesAcrossStrategies(t *testing.T) {
	page := `<html><body>
<audio><source src="/media/us_pron/a.mp3"/></audio>
<div class="audio_play_button" data-src-mp3="/media/us_pron/a.mp3"></div>
</body></html>`

	c := newTestCambridge(t, "https://dictionary.cambridge.org")
	got := c.collect(parse(t, page))
	if len(got) != 1 {
		t.Fatalf("Expected 1 candidate, got %v", got)
	}
	if got[0].url != "https://dictionary.cambridge.org/media/us_pron/a.mp3" || got[0].strategy != "source_tag" {
		t.Errorf("Unexpected candidate %+v", got[0])
	}
}

func TestDisabled(t *testing.T) {
	ref, err := Disabled{}.Lookup(context.Background(), "hello")
	if ref != nil || err != nil {
		t.Errorf("Expected miss, got ref=%v err=%v", ref, err)
	}
}
