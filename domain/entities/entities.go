package entities

import "strings"

const (
	// DefaultVoice is the voice used when a request does not name one
	DefaultVoice = "en-US-Journey-F"
	// DefaultSpeed is the speaking rate used when a request does not set a positive one
	DefaultSpeed = 1.0
	// ContentTypeMPEG is the only audio content type this system produces
	ContentTypeMPEG = "audio/mpeg"
)

// ResolutionRequest is a single (text, voice, speed) combination to turn into audio
type ResolutionRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice_id"`
	Speed float64 `json:"speed"`
}

// NewResolutionRequest trims the text and applies voice and speed defaults.
// It returns ErrEmptyInput when nothing is left after trimming.
func NewResolutionRequest(text, voice string, speed float64) (ResolutionRequest, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ResolutionRequest{}, &ResolutionError{Kind: ErrEmptyInput, Op: "validate"}
	}

	voice = strings.TrimSpace(voice)
	if voice == "" {
		voice = DefaultVoice
	}
	if speed <= 0 {
		speed = DefaultSpeed
	}

	return ResolutionRequest{Text: text, Voice: voice, Speed: speed}, nil
}

// WithText returns a copy of the request carrying another text and the same voice settings
func (r ResolutionRequest) WithText(text string) ResolutionRequest {
	r.Text = strings.TrimSpace(text)
	return r
}

// AudioBlob is an opaque audio payload with its content type
type AudioBlob struct {
	Data        []byte `json:"-"`
	ContentType string `json:"content_type"`
}

// NewMPEGBlob wraps MP3 bytes
func NewMPEGBlob(data []byte) AudioBlob {
	return AudioBlob{Data: data, ContentType: ContentTypeMPEG}
}

// AudioSource names the strategy that produced a blob
type AudioSource string

const (
	SourceCache         AudioSource = "cache"
	SourceConcatenation AudioSource = "concatenation"
	SourceDictionary    AudioSource = "dictionary"
	SourceSynthesis     AudioSource = "synthesis"
)

// AudioReference points at pre-recorded pronunciation audio that can be fetched
type AudioReference struct {
	URL    string `json:"url"`
	Region string `json:"region,omitempty"`
	// Strategy is the extraction strategy that found the reference
	Strategy string `json:"strategy,omitempty"`
}

// SynthesisRequest is what a text-to-speech provider receives
type SynthesisRequest struct {
	Text  string
	Voice string
	Speed float64
}

// Voice describes one selectable synthesis voice
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// AvailableVoices is the catalog offered to the learning front end
var AvailableVoices = []Voice{
	{ID: "en-US-Journey-F", Name: "Journey (Modern)", Gender: "Female"},
	{ID: "en-US-Journey-D", Name: "Journey (Deep)", Gender: "Male"},
	{ID: "en-US-Neural2-C", Name: "Neural (C)", Gender: "Female"},
	{ID: "en-US-Neural2-D", Name: "Neural (D)", Gender: "Male"},
	{ID: "en-US-Wavenet-C", Name: "WaveNet (C)", Gender: "Female"},
	{ID: "en-US-Wavenet-D", Name: "WaveNet (D)", Gender: "Male"},
}
