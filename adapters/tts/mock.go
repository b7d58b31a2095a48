package tts

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/satriahrh/interviewer/domain/repositories"
)

// MockTextToSpeech returns the text itself as audio bytes
type MockTextToSpeech struct {
	calls atomic.Int64
}

var _ repositories.TextToSpeech = (*MockTextToSpeech)(nil)

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech() *MockTextToSpeech {
	return &MockTextToSpeech{}
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (m *MockTextToSpeech) ConvertTextToSpeech(ctx context.Context, text string, voice repositories.VoiceConfig) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	m.calls.Add(1)
	return chunked([]byte(text), 16), nil
}

// Calls returns how many times audio was synthesized
func (m *MockTextToSpeech) Calls() int {
	return int(m.calls.Load())
}
