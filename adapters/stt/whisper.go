package stt

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/repositories"
)

const (
	defaultWhisperBaseURL  = "https://api.openai.com/v1"
	defaultWhisperModel    = "whisper-1"
	defaultWhisperFilename = "audio.webm"
	defaultWhisperTimeout  = 60 * time.Second
)

// WhisperConfig holds configuration for the Whisper adapter
type WhisperConfig struct {
	APIKey  string        // Required
	BaseURL string        // Optional: defaults to the OpenAI API
	Model   string        // Optional: defaults to whisper-1
	Timeout time.Duration // Optional
}

// WhisperSpeechToText implements SpeechToText with OpenAI's transcription endpoint
type WhisperSpeechToText struct {
	client *resty.Client
	model  string
	logger *zap.Logger
}

var _ repositories.SpeechToText = (*WhisperSpeechToText)(nil)

type whisperResponse struct {
	Text string `json:"text"`
}

type whisperError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ValidateWhisperConfig validates the WhisperConfig
func ValidateWhisperConfig(config WhisperConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// NewWhisperConfigFromEnv reads OPENAI_* environment variables
func NewWhisperConfigFromEnv() WhisperConfig {
	return WhisperConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("WHISPER_MODEL"),
	}
}

// NewWhisperSpeechToText creates a new Whisper transcription adapter
func NewWhisperSpeechToText(config WhisperConfig, logger *zap.Logger) (*WhisperSpeechToText, error) {
	if err := ValidateWhisperConfig(config); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultWhisperBaseURL
		logger.Info("Using default API base URL", zap.String("baseURL", baseURL))
	}

	model := config.Model
	if model == "" {
		model = defaultWhisperModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultWhisperTimeout
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetAuthToken(config.APIKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r != nil && (r.StatusCode() >= 500 || r.StatusCode() == 429)
	})

	return &WhisperSpeechToText{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// TranscribeAudio uploads the audio as multipart form data
func (w *WhisperSpeechToText) TranscribeAudio(ctx context.Context, audioData []byte, config repositories.AudioConfig) (string, error) {
	if len(audioData) == 0 {
		return "", fmt.Errorf("no audio data received")
	}

	filename := config.Filename
	if filename == "" {
		filename = defaultWhisperFilename
	}

	form := map[string]string{
		"model":           w.model,
		"response_format": "json",
		"temperature":     "0",
	}
	if config.Language != "" {
		form["language"] = config.Language
	}
	if config.Prompt != "" {
		form["prompt"] = config.Prompt
	}

	var result whisperResponse
	var apiErr whisperError
	resp, err := w.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(audioData)).
		SetFormData(form).
		SetResult(&result).
		SetError(&apiErr).
		Post("/audio/transcriptions")
	if err != nil {
		w.logger.Error("Failed to call transcription API", zap.Error(err))
		return "", fmt.Errorf("transcription request failed: %w", err)
	}

	if resp.IsError() {
		message := apiErr.Error.Message
		if message == "" {
			message = resp.String()
		}
		w.logger.Error("Transcription API returned error",
			zap.Int("statusCode", resp.StatusCode()),
			zap.String("response", message))
		return "", fmt.Errorf("transcription API error %d: %s", resp.StatusCode(), message)
	}

	text := strings.TrimSpace(result.Text)
	w.logger.Info("Audio transcribed",
		zap.Int("audioSize", len(audioData)),
		zap.String("language", config.Language),
		zap.Int("textLength", len(text)))

	return text, nil
}
