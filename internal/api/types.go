package api

import "github.com/satriahrh/learnvoice/domain/entities"

// TTSRequest represents the request payload for audio resolution
type TTSRequest struct {
	Text    string  `json:"text"`
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
}

// TTSResponse carries the playable URL
type TTSResponse struct {
	URL    string `json:"url"`
	Source string `json:"source,omitempty"`
	Cached bool   `json:"cached"`
}

// StatusResponse is served at the root path
type StatusResponse struct {
	Status  string `json:"status"`
	Engine  string `json:"engine"`
	Storage bool   `json:"storage"`
}

// VoicesResponse lists the selectable voices
type VoicesResponse struct {
	Voices []entities.Voice `json:"voices"`
}

// WarmRequest starts a background cache warming job
type WarmRequest struct {
	Words   []string `json:"words"`
	VoiceID string   `json:"voice_id"`
	Speed   float64  `json:"speed"`
}

// WarmResponse identifies a started job
type WarmResponse struct {
	JobID string `json:"job_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
