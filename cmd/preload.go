package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	preload "github.com/satriahrh/learnvoice/internal/websocket"
	"github.com/satriahrh/learnvoice/usecase"
)

type preloadReply struct {
	Type      preload.MessageType `json:"type"`
	RequestID string              `json:"request_id"`
	URL       string              `json:"url"`
	Source    string              `json:"source"`
	Code      string              `json:"error_code"`
	Message   string              `json:"message"`
}

func newPreloadCommand() *cobra.Command {
	var (
		server  string
		voice   string
		speed   float64
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "preload <word...>",
		Short: "Resolve words through a running server's preload channel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			words := usecase.UniqueWords(args, voice, speed)

			wsURL, err := preloadURL(server)
			if err != nil {
				return err
			}

			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("websocket connection failed with status %d: %w", resp.StatusCode, err)
				}
				return fmt.Errorf("websocket connection failed: %w", err)
			}
			defer conn.Close()

			if err := conn.WriteJSON(map[string]string{"type": string(preload.MessageTypePing)}); err != nil {
				return fmt.Errorf("failed to send ping: %w", err)
			}

			pending := make(map[string]string, len(words))
			for i, word := range words {
				id := strconv.Itoa(i + 1)
				pending[id] = word
				msg := map[string]interface{}{
					"type":       preload.MessageTypeResolve,
					"request_id": id,
					"text":       word,
					"voice_id":   voice,
					"speed":      speed,
				}
				if err := conn.WriteJSON(msg); err != nil {
					return fmt.Errorf("failed to send resolve: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			failed := 0
			deadline := time.Now().Add(timeout)
			for len(pending) > 0 {
				conn.SetReadDeadline(deadline)
				var r preloadReply
				if err := conn.ReadJSON(&r); err != nil {
					return fmt.Errorf("failed to read reply (%d outstanding): %w", len(pending), err)
				}

				switch r.Type {
				case preload.MessageTypePong:
					fmt.Fprintln(out, "connected")
				case preload.MessageTypeResolved:
					fmt.Fprintf(out, "%-12s %-14s %s\n", pending[r.RequestID], r.Source, r.URL)
					delete(pending, r.RequestID)
				case preload.MessageTypeError:
					failed++
					fmt.Fprintf(out, "%-12s %-14s %s\n", pending[r.RequestID], r.Code, r.Message)
					delete(pending, r.RequestID)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d words failed", failed, len(words))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Server base URL")
	cmd.Flags().StringVar(&voice, "voice", "", "Voice id (default en-US-Journey-F)")
	cmd.Flags().Float64Var(&speed, "speed", 0, "Speaking rate (default 1.0)")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall time to wait for replies")

	return cmd
}

// preloadURL turns an http(s) base URL into the preload WebSocket URL
func preloadURL(server string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	u.Path += "/ws/preload"
	return u.String(), nil
}
