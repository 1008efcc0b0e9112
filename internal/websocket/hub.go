package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/learnvoice/domain/entities"
	"github.com/satriahrh/learnvoice/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16 * 1024

	// DefaultConcurrency bounds in-flight resolves per connection.
	DefaultConcurrency = 4

	// DefaultRequestTimeout bounds a single resolve.
	DefaultRequestTimeout = 45 * time.Second
)

// URLResolver turns a phrase into a playable URL
type URLResolver interface {
	ResolveToURL(ctx context.Context, text, voice string, speed float64) (*usecase.Result, error)
}

// HubConfig holds the preload hub settings
type HubConfig struct {
	Resolver       URLResolver
	Concurrency    int
	RequestTimeout time.Duration
	// AllowedOrigins is matched against the Origin header; "*" allows all
	AllowedOrigins []string
}

// Hub maintains the set of active preload clients
type Hub struct {
	// Registered clients.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	resolver       URLResolver
	concurrency    int
	requestTimeout time.Duration
	upgrader       websocket.Upgrader
	validator      *MessageValidator

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(config HubConfig, logger *zap.Logger) (*Hub, error) {
	if config.Resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	h := &Hub{
		clients:        make(map[string]*Client),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		done:           make(chan struct{}),
		resolver:       config.Resolver,
		concurrency:    config.Concurrency,
		requestTimeout: config.RequestTimeout,
		validator:      NewMessageValidator(),
		logger:         logger,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin:     originChecker(config.AllowedOrigins),
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	return h, nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// Run starts the hub's main loop and closes every client when ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			h.logger.Info("Client registered", zap.String("clientID", client.id))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("clientID", client.id))

		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				client.cancel()
				client.conn.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("Preload hub stopped")
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	id string

	// Cancelled when the connection goes away; in-flight resolves stop with it.
	ctx    context.Context
	cancel context.CancelFunc

	// Slots for in-flight resolves.
	sem      chan struct{}
	inflight sync.WaitGroup

	logger *zap.Logger
}

// HandleWebSocket upgrades the request and starts serving preload messages
func HandleWebSocket(hub *Hub, c echo.Context) error {
	conn, err := hub.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		hub.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan WriteData, 256),
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		sem:    make(chan struct{}, hub.concurrency),
		logger: hub.logger.With(zap.String("clientID", id)),
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		cancel()
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.inflight.Wait()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unsupported message type", zap.Int("type", messageType))
			c.enqueue(CreateErrorMessage("", CodeInvalidRequest, "Only text messages are supported"))
			continue
		}
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// processMessage dispatches one text frame
func (c *Client) processMessage(message []byte) {
	parsed, err := c.hub.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected message", zap.Error(err))
		c.enqueue(CreateErrorMessage(requestIDOf(message), CodeInvalidRequest, err.Error()))
		return
	}

	switch msg := parsed.(type) {
	case *PingMessage:
		c.enqueue(CreatePongMessage(msg.Data))
	case *ResolveMessage:
		c.startResolve(msg)
	}
}

// startResolve waits for a free slot, then resolves in its own goroutine
func (c *Client) startResolve(msg *ResolveMessage) {
	select {
	case c.sem <- struct{}{}:
	case <-c.ctx.Done():
		return
	}

	c.inflight.Add(1)
	go func() {
		defer func() {
			<-c.sem
			c.inflight.Done()
		}()
		c.resolve(msg)
	}()
}

func (c *Client) resolve(msg *ResolveMessage) {
	ctx, cancel := context.WithTimeout(c.ctx, c.hub.requestTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.hub.resolver.ResolveToURL(ctx, msg.Text, msg.Voice, msg.Speed)
	if err != nil {
		c.logger.Warn("Preload resolve failed",
			zap.String("requestID", msg.RequestID),
			zap.Error(err))
		c.enqueue(CreateErrorMessage(msg.RequestID, entities.ErrorCode(err), entities.ErrorMessage(err)))
		return
	}

	c.logger.Debug("Preload resolved",
		zap.String("requestID", msg.RequestID),
		zap.String("key", result.Key.String()),
		zap.String("source", string(result.Source)),
		zap.Duration("duration", time.Since(start)))
	c.enqueue(CreateResolvedMessage(msg.RequestID, result))
}

// enqueue queues a JSON message for the write pump; dropped once the client is gone
func (c *Client) enqueue(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode message", zap.Error(err))
		return
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	case <-c.ctx.Done():
	}
}

func requestIDOf(message []byte) string {
	var base BaseMessage
	if err := json.Unmarshal(message, &base); err != nil {
		return ""
	}
	return base.RequestID
}
