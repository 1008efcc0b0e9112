package websocket

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/satriahrh/learnvoice/usecase"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeResolve  MessageType = "resolve"
	MessageTypeResolved MessageType = "resolved"
	MessageTypePing     MessageType = "ping"
	MessageTypePong     MessageType = "pong"
	MessageTypeError    MessageType = "error"
)

// Error codes that are not produced by the resolver
const (
	CodeInvalidRequest = "invalid_request"
	CodeOverloaded     = "overloaded"
)

// maxSpeed is the fastest speaking rate any provider accepts
const maxSpeed = 4.0

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// ResolveMessage asks the server to prepare audio for one phrase
type ResolveMessage struct {
	BaseMessage
	Text  string  `json:"text"`
	Voice string  `json:"voice_id,omitempty"`
	Speed float64 `json:"speed,omitempty"`
}

// ResolvedMessage carries the playable URL for a ResolveMessage
type ResolvedMessage struct {
	BaseMessage
	URL    string `json:"url"`
	Source string `json:"source"`
	Cached bool   `json:"cached"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage validates an incoming message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeResolve:
		var msg ResolveMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid resolve message: %w", err)
		}
		if err := v.validateResolve(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// validateResolve checks the envelope only; empty text is reported by the resolver
func (v *MessageValidator) validateResolve(msg *ResolveMessage) error {
	if strings.TrimSpace(msg.RequestID) == "" {
		return fmt.Errorf("request_id is required")
	}
	if msg.Speed < 0 || msg.Speed > maxSpeed {
		return fmt.Errorf("speed must be between 0 and %g", maxSpeed)
	}
	return nil
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(requestID, code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: now(),
			RequestID: requestID,
		},
		Code:    code,
		Message: message,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePong,
			Timestamp: now(),
		},
		Data: data,
	}
}

// CreateResolvedMessage answers a resolve request
func CreateResolvedMessage(requestID string, result *usecase.Result) *ResolvedMessage {
	return &ResolvedMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeResolved,
			Timestamp: now(),
			RequestID: requestID,
		},
		URL:    result.URL,
		Source: string(result.Source),
		Cached: result.Cached,
	}
}
