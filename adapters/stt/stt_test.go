package stt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/interviewer/domain/repositories"
)

var (
	_ repositories.SpeechToText = &GoogleSpeechToText{}
	_ repositories.SpeechToText = &MockSpeechToText{}
)

func TestWhisperSpeechToText_TranscribeAudio(t *testing.T) {
	var got struct {
		path, auth, filename, model, format, language, prompt, temperature string
		audio                                                              []byte
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		got.model = r.FormValue("model")
		got.format = r.FormValue("response_format")
		got.language = r.FormValue("language")
		got.prompt = r.FormValue("prompt")
		got.temperature = r.FormValue("temperature")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing file part: %v", err)
		} else {
			got.filename = header.Filename
			got.audio, _ = io.ReadAll(file)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": " My name is Jane Doe. "}`))
	}))
	defer server.Close()

	whisper, err := NewWhisperSpeechToText(WhisperConfig{APIKey: "test-key", BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create WhisperSpeechToText: %v", err)
	}

	text, err := whisper.TranscribeAudio(context.Background(), []byte("fake-audio"), repositories.AudioConfig{
		Language: "en",
		Prompt:   "assistant: Hello",
		Filename: "clip.wav",
	})
	if err != nil {
		t.Fatalf("TranscribeAudio failed: %v", err)
	}

	if text != "My name is Jane Doe." {
		t.Errorf("Expected trimmed transcription, got %q", text)
	}
	if got.path != "/audio/transcriptions" {
		t.Errorf("Unexpected path %s", got.path)
	}
	if got.auth != "Bearer test-key" {
		t.Errorf("Unexpected Authorization header %q", got.auth)
	}
	if got.model != defaultWhisperModel || got.format != "json" || got.temperature != "0" {
		t.Errorf("Unexpected form fields model=%s format=%s temperature=%s", got.model, got.format, got.temperature)
	}
	if got.language != "en" || got.prompt != "assistant: Hello" {
		t.Errorf("Unexpected language/prompt %s/%s", got.language, got.prompt)
	}
	if got.filename != "clip.wav" || string(got.audio) != "fake-audio" {
		t.Errorf("Unexpected file part %s (%d bytes)", got.filename, len(got.audio))
	}
}

func TestWhisperSpeechToText_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid file format.", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	whisper, err := NewWhisperSpeechToText(WhisperConfig{APIKey: "test-key", BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create WhisperSpeechToText: %v", err)
	}

	if _, err := whisper.TranscribeAudio(context.Background(), []byte("x"), repositories.AudioConfig{}); err == nil {
		t.Error("Expected error for 400 response")
	}

	if _, err := whisper.TranscribeAudio(context.Background(), nil, repositories.AudioConfig{}); err == nil {
		t.Error("Expected error for empty audio")
	}
}

func TestNewWhisperSpeechToText_RequiresKey(t *testing.T) {
	if _, err := NewWhisperSpeechToText(WhisperConfig{}, zaptest.NewLogger(t)); err == nil {
		t.Error("Expected error when API key is not set")
	}
}

func TestRecognizeRequest(t *testing.T) {
	req, err := recognizeRequest([]byte("pcm"), repositories.AudioConfig{
		SampleRate:   16000,
		Encoding:     "linear16",
		Language:     "ko",
		LanguageCode: "ko-KR",
	})
	if err != nil {
		t.Fatalf("recognizeRequest failed: %v", err)
	}

	cfg := req.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("Expected LINEAR16, got %s", cfg.GetEncoding())
	}
	if cfg.GetSampleRateHertz() != 16000 {
		t.Errorf("Expected 16000 Hz, got %d", cfg.GetSampleRateHertz())
	}
	if cfg.GetLanguageCode() != "ko-KR" {
		t.Errorf("Expected ko-KR, got %s", cfg.GetLanguageCode())
	}
	if string(req.GetAudio().GetContent()) != "pcm" {
		t.Error("Expected inline audio content")
	}

	req, err = recognizeRequest([]byte("pcm"), repositories.AudioConfig{Language: "en"})
	if err != nil {
		t.Fatalf("recognizeRequest failed: %v", err)
	}
	if req.GetConfig().GetLanguageCode() != "en" {
		t.Errorf("Expected fallback to language, got %s", req.GetConfig().GetLanguageCode())
	}

	if _, err := recognizeRequest([]byte("pcm"), repositories.AudioConfig{Encoding: "AAC"}); err == nil {
		t.Error("Expected error for unsupported encoding")
	}
}

func TestMockSpeechToText(t *testing.T) {
	mock := NewMockSpeechToText(zaptest.NewLogger(t))

	text, err := mock.TranscribeAudio(context.Background(), make([]byte, 20000), repositories.AudioConfig{})
	if err != nil {
		t.Fatalf("TranscribeAudio failed: %v", err)
	}
	if text == "" {
		t.Error("Expected mock transcription")
	}

	if _, err := mock.TranscribeAudio(context.Background(), nil, repositories.AudioConfig{}); err == nil {
		t.Error("Expected error for empty audio")
	}
}

// Integration test - only runs if OPENAI_API_KEY and WHISPER_TEST_AUDIO are set
func TestWhisperSpeechToText_Integration(t *testing.T) {
	path := os.Getenv("WHISPER_TEST_AUDIO")
	if os.Getenv("OPENAI_API_KEY") == "" || path == "" {
		t.Skip("Skipping integration test - set OPENAI_API_KEY and WHISPER_TEST_AUDIO")
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read audio: %v", err)
	}

	whisper, err := NewWhisperSpeechToText(NewWhisperConfigFromEnv(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create WhisperSpeechToText: %v", err)
	}

	text, err := whisper.TranscribeAudio(context.Background(), audio, repositories.AudioConfig{Language: "en"})
	if err != nil {
		t.Fatalf("TranscribeAudio failed: %v", err)
	}
	t.Logf("Transcription: %s", text)
}
