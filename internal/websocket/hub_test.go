package websocket

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/internal/cachekey"
	"github.com/satriahrh/learnvoice/usecase"
)

type fakeResolver struct {
	delay time.Duration

	mu        sync.Mutex
	active    int
	maxActive int
	calls     int
}

func (f *fakeResolver) ResolveToURL(ctx context.Context, text, voice string, speed float64) (*usecase.Result, error) {
	req, err := entities.NewResolutionRequest(text, voice, speed)
	if err != nil {
		return nil, err
	}
	if req.Text == "fail" {
		return nil, &entities.ResolutionError{Kind: entities.ErrSynthesisFailure, Op: "synthesize"}
	}

	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	key := cachekey.Derive(req.Text, req.Voice, req.Speed)
	return &usecase.Result{
		URL:       "https://cdn.test/" + key.Filename(),
		Key:       key,
		Source:    entities.SourceSynthesis,
		Persisted: true,
	}, nil
}

type reply struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id"`
	URL       string      `json:"url"`
	Source    string      `json:"source"`
	Cached    bool        `json:"cached"`
	Code      string      `json:"error_code"`
	Message   string      `json:"message"`
	Data      string      `json:"data"`
}

func setupTestServer(t *testing.T, resolver URLResolver, concurrency int) (*Hub, string, context.CancelFunc) {
	t.Helper()

	hub, err := NewHub(HubConfig{
		Resolver:       resolver,
		Concurrency:    concurrency,
		AllowedOrigins: []string{"*"},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws/preload", func(c echo.Context) error {
		return HandleWebSocket(hub, c)
	})
	server := httptest.NewServer(e)
	t.Cleanup(func() {
		cancel()
		server.Close()
	})

	return hub, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/preload", cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket connection failed: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readReply(t *testing.T, ws *websocket.Conn) reply {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var r reply
	if err := ws.ReadJSON(&r); err != nil {
		t.Fatalf("Failed to read reply: %v", err)
	}
	return r
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestHub_NewHub(t *testing.T) {
	if _, err := NewHub(HubConfig{}, zap.NewNop()); err == nil {
		t.Error("Expected error without resolver")
	}

	hub, err := NewHub(HubConfig{Resolver: &fakeResolver{}}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHub failed: %v", err)
	}
	if hub.clients == nil {
		t.Error("Hub clients map not initialized")
	}
	if hub.concurrency != DefaultConcurrency {
		t.Errorf("Expected concurrency %d, got %d", DefaultConcurrency, hub.concurrency)
	}
	if hub.requestTimeout != DefaultRequestTimeout {
		t.Errorf("Expected request timeout %v, got %v", DefaultRequestTimeout, hub.requestTimeout)
	}
}

func TestPreloadResolve(t *testing.T) {
	_, url, _ := setupTestServer(t, &fakeResolver{}, 0)
	ws := dial(t, url)

	err := ws.WriteJSON(map[string]interface{}{
		"type":       "resolve",
		"request_id": "r1",
		"text":       "Hello",
		"voice_id":   "en-US-Journey-F",
		"speed":      1.0,
	})
	if err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	r := readReply(t, ws)
	if r.Type != MessageTypeResolved {
		t.Fatalf("Expected resolved, got %s (%s)", r.Type, r.Message)
	}
	if r.RequestID != "r1" {
		t.Errorf("Expected request_id r1, got %s", r.RequestID)
	}
	want := "https://cdn.test/" + cachekey.Derive("hello", "", 0).Filename()
	if r.URL != want {
		t.Errorf("Expected url %s, got %s", want, r.URL)
	}
	if r.Source != string(entities.SourceSynthesis) {
		t.Errorf("Expected source synthesis, got %s", r.Source)
	}
}

func TestPreloadPing(t *testing.T) {
	_, url, _ := setupTestServer(t, &fakeResolver{}, 0)
	ws := dial(t, url)

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","data":"test-ping"}`)); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	r := readReply(t, ws)
	if r.Type != MessageTypePong {
		t.Errorf("Expected pong type, got %s", r.Type)
	}
	if r.Data != "test-ping" {
		t.Errorf("Expected data test-ping, got %s", r.Data)
	}
}

func TestPreloadErrors(t *testing.T) {
	_, url, _ := setupTestServer(t, &fakeResolver{}, 0)
	ws := dial(t, url)

	tests := []struct {
		name      string
		message   string
		requestID string
		code      string
	}{
		{"invalid json", `{invalid json}`, "", CodeInvalidRequest},
		{"unknown type", `{"type":"listen","request_id":"r2"}`, "r2", CodeInvalidRequest},
		{"missing request id", `{"type":"resolve","text":"hello"}`, "", CodeInvalidRequest},
		{"empty text", `{"type":"resolve","request_id":"r3","text":"   "}`, "r3", "empty_input"},
		{"synthesis failure", `{"type":"resolve","request_id":"r4","text":"fail"}`, "r4", "synthesis_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ws.WriteMessage(websocket.TextMessage, []byte(tt.message)); err != nil {
				t.Fatalf("Failed to write: %v", err)
			}
			r := readReply(t, ws)
			if r.Type != MessageTypeError {
				t.Fatalf("Expected error type, got %s", r.Type)
			}
			if r.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, r.Code)
			}
			if r.RequestID != tt.requestID {
				t.Errorf("Expected request_id %q, got %q", tt.requestID, r.RequestID)
			}
		})
	}
}

func TestPreloadConcurrencyBound(t *testing.T) {
	resolver := &fakeResolver{delay: 30 * time.Millisecond}
	_, url, _ := setupTestServer(t, resolver, 2)
	ws := dial(t, url)

	const n = 6
	for i := 0; i < n; i++ {
		err := ws.WriteJSON(map[string]interface{}{
			"type":       "resolve",
			"request_id": fmt.Sprintf("r%d", i),
			"text":       fmt.Sprintf("word%d", i),
		})
		if err != nil {
			t.Fatalf("Failed to write: %v", err)
		}
	}

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		r := readReply(t, ws)
		if r.Type != MessageTypeResolved {
			t.Fatalf("Expected resolved, got %s (%s)", r.Type, r.Message)
		}
		seen[r.RequestID] = true
	}
	if len(seen) != n {
		t.Errorf("Expected %d distinct replies, got %d", n, len(seen))
	}

	resolver.mu.Lock()
	defer resolver.mu.Unlock()
	if resolver.maxActive > 2 {
		t.Errorf("Expected at most 2 concurrent resolves, got %d", resolver.maxActive)
	}
	if resolver.calls != n {
		t.Errorf("Expected %d calls, got %d", n, resolver.calls)
	}
}

func TestClientCount(t *testing.T) {
	hub, url, _ := setupTestServer(t, &fakeResolver{}, 0)

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket connection failed: %v", err)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	ws.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHubRunClosesClients(t *testing.T) {
	hub, url, cancel := setupTestServer(t, &fakeResolver{}, 0)
	ws := dial(t, url)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	cancel()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("Expected connection to be closed after hub stopped")
	}
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"https://app.test"}, "", true},
		{"wildcard", []string{"*"}, "https://evil.test", true},
		{"listed", []string{"https://app.test"}, "https://app.test", true},
		{"unlisted", []string{"https://app.test"}, "https://evil.test", false},
		{"empty list", nil, "https://app.test", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws/preload", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := originChecker(tt.allowed)(r); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}
