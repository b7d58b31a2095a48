package repositories

import (
	"bytes"
	"context"
)

type TextToSpeech interface {
	ConvertTextToSpeech(ctx context.Context, text string, voice VoiceConfig) (<-chan []byte, error)
}

// VoiceConfig selects the voice used for synthesis
type VoiceConfig struct {
	LanguageCode string `json:"language_code"`
	Name         string `json:"name"`
}

// CollectAudio drains an audio channel into a single buffer
func CollectAudio(ctx context.Context, audio <-chan []byte) ([]byte, error) {
	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-audio:
			if !ok {
				return buf.Bytes(), nil
			}
			buf.Write(chunk)
		}
	}
}
