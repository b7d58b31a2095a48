package tts

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/repositories"
)

// GoogleTextToSpeech synthesizes MP3 audio with Google Cloud Text-to-Speech
type GoogleTextToSpeech struct {
	client    *texttospeech.Client
	chunkSize int
	logger    *zap.Logger
}

var _ repositories.TextToSpeech = (*GoogleTextToSpeech)(nil)

// NewGoogleTextToSpeech creates a client using application default credentials
func NewGoogleTextToSpeech(ctx context.Context, logger *zap.Logger) (*GoogleTextToSpeech, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &GoogleTextToSpeech{
		client:    client,
		chunkSize: defaultChunkSize,
		logger:    logger,
	}, nil
}

// Close releases the underlying client
func (g *GoogleTextToSpeech) Close() error {
	return g.client.Close()
}

// ConvertTextToSpeech implements repositories.TextToSpeech
func (g *GoogleTextToSpeech) ConvertTextToSpeech(ctx context.Context, text string, voice repositories.VoiceConfig) (<-chan []byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	resp, err := g.client.SynthesizeSpeech(ctx, synthesizeRequest(text, voice))
	if err != nil {
		g.logger.Error("Failed to synthesize speech", zap.Error(err))
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	g.logger.Info("Speech synthesized",
		zap.String("languageCode", voice.LanguageCode),
		zap.String("voice", voice.Name),
		zap.Int("audioSize", len(resp.GetAudioContent())))

	return chunked(resp.GetAudioContent(), g.chunkSize), nil
}

func synthesizeRequest(text string, voice repositories.VoiceConfig) *texttospeechpb.SynthesizeSpeechRequest {
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}
}

// chunked emits audio on a closed, fully buffered channel
func chunked(audio []byte, size int) <-chan []byte {
	if size <= 0 {
		size = defaultChunkSize
	}
	out := make(chan []byte, len(audio)/size+1)
	for start := 0; start < len(audio); start += size {
		end := min(start+size, len(audio))
		out <- audio[start:end]
	}
	close(out)
	return out
}
