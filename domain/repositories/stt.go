package repositories

import "context"

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// TranscribeAudio converts audio data to text
	TranscribeAudio(ctx context.Context, audioData []byte, config AudioConfig) (string, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate   int    `json:"sample_rate"`
	Encoding     string `json:"encoding"`
	Language     string `json:"language"`      // ISO 639-1, e.g. "en"
	LanguageCode string `json:"language_code"` // BCP-47, e.g. "en-US"
	// Prompt carries the conversation so far to bias recognition
	Prompt   string `json:"prompt,omitempty"`
	Filename string `json:"filename,omitempty"`
}
