package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/adapters/llm"
	"github.com/satriahrh/interviewer/adapters/stt"
	"github.com/satriahrh/interviewer/adapters/tts"
	"github.com/satriahrh/interviewer/domain/repositories"
	"github.com/satriahrh/interviewer/internal/config"
	"github.com/satriahrh/interviewer/internal/gedcomx"
	"github.com/satriahrh/interviewer/internal/websocket"
)

// providers holds the adapters selected by the configuration
type providers struct {
	llm     repositories.LargeLanguageModel
	stt     repositories.SpeechToText
	tts     repositories.TextToSpeech
	closers []io.Closer
	logger  *zap.Logger
}

func newProviders(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*providers, error) {
	p := &providers{logger: logger}

	var err error
	if p.llm, err = p.newLLM(ctx, cfg.LLMProvider); err != nil {
		p.Close()
		return nil, err
	}
	if p.stt, err = p.newSTT(ctx, cfg.STTProvider); err != nil {
		p.Close()
		return nil, err
	}
	if p.tts, err = p.newTTS(ctx, cfg.TTSProvider); err != nil {
		p.Close()
		return nil, err
	}

	if cfg.TTSCacheSize > 0 {
		cached, err := tts.NewCachedTextToSpeech(p.tts, cfg.TTSCacheSize, logger)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.tts = cached
	}
	return p, nil
}

func (p *providers) newLLM(ctx context.Context, name string) (repositories.LargeLanguageModel, error) {
	switch name {
	case "openai":
		return llm.NewOpenAILLM(llm.NewOpenAIConfigFromEnv(), p.logger)
	case "gemini":
		return llm.NewGeminiLLM(ctx, llm.NewGeminiConfigFromEnv(), p.logger)
	case "mock":
		p.logger.Info("Using mock language model")
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", name)
	}
}

func (p *providers) newSTT(ctx context.Context, name string) (repositories.SpeechToText, error) {
	switch name {
	case "whisper":
		return stt.NewWhisperSpeechToText(stt.NewWhisperConfigFromEnv(), p.logger)
	case "google":
		client, err := stt.NewGoogleSpeechToText(ctx, p.logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, client)
		return client, nil
	case "mock":
		p.logger.Info("Using mock speech-to-text")
		return stt.NewMockSpeechToText(p.logger), nil
	default:
		return nil, fmt.Errorf("unknown STT provider %q", name)
	}
}

func (p *providers) newTTS(ctx context.Context, name string) (repositories.TextToSpeech, error) {
	switch name {
	case "google":
		client, err := tts.NewGoogleTextToSpeech(ctx, p.logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, client)
		return client, nil
	case "elevenlabs":
		return tts.NewElevenLabsTTS(tts.NewElevenLabsConfigFromEnv(), p.logger)
	case "mock":
		p.logger.Info("Using mock text-to-speech")
		return tts.NewMockTextToSpeech(), nil
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", name)
	}
}

// Close releases the provider clients
func (p *providers) Close() {
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			p.logger.Warn("Failed to close provider client", zap.Error(err))
		}
	}
	p.closers = nil
}

// hubPublisher forwards record updates to the hub once it exists
type hubPublisher struct {
	hub *websocket.Hub
}

func (p *hubPublisher) PublishRecords(interviewID string, records []gedcomx.Record) {
	if p.hub != nil {
		p.hub.PublishRecords(interviewID, records)
	}
}
