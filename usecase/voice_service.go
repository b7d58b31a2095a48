package usecase

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/entities"
	"github.com/satriahrh/interviewer/domain/repositories"
)

// VoiceService turns speech into text and text into speech
type VoiceService struct {
	speechToText repositories.SpeechToText
	textToSpeech repositories.TextToSpeech
	logger       *zap.Logger
}

// NewVoiceService creates a new voice service
func NewVoiceService(stt repositories.SpeechToText, tts repositories.TextToSpeech, logger *zap.Logger) *VoiceService {
	return &VoiceService{
		speechToText: stt,
		textToSpeech: tts,
		logger:       logger,
	}
}

// Transcribe converts an uploaded recording to text. The conversation so far
// is passed along as a recognition hint.
func (s *VoiceService) Transcribe(ctx context.Context, audio []byte, filename string, language entities.Language, conversation string) (string, error) {
	config := repositories.AudioConfig{
		Encoding:     encodingFromFilename(filename),
		Language:     language.Code,
		LanguageCode: language.LanguageCode,
		Prompt:       conversation,
		Filename:     filename,
	}

	text, err := s.speechToText.TranscribeAudio(ctx, audio, config)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	s.logger.Info("Transcription completed",
		zap.String("language", language.Code),
		zap.Int("audioSize", len(audio)),
		zap.String("text", text))
	return strings.TrimSpace(text), nil
}

// Synthesize converts text to MP3 audio in the language's voice
func (s *VoiceService) Synthesize(ctx context.Context, text string, language entities.Language) ([]byte, error) {
	stream, err := s.textToSpeech.ConvertTextToSpeech(ctx, text, repositories.VoiceConfig{
		LanguageCode: language.LanguageCode,
		Name:         language.Voice,
	})
	if err != nil {
		return nil, fmt.Errorf("text-to-speech failed: %w", err)
	}

	audio, err := repositories.CollectAudio(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("text-to-speech failed: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("text-to-speech returned no audio")
	}

	s.logger.Info("TTS completed", zap.Int("audioSize", len(audio)))
	return audio, nil
}

func encodingFromFilename(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".wav":
		return "LINEAR16"
	case ".flac":
		return "FLAC"
	case ".ogg", ".opus":
		return "OGG_OPUS"
	case ".webm":
		return "WEBM_OPUS"
	default:
		return ""
	}
}
