package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/interviewer/adapters"
	"github.com/satriahrh/interviewer/adapters/llm"
	"github.com/satriahrh/interviewer/adapters/stt"
	"github.com/satriahrh/interviewer/adapters/tts"
	"github.com/satriahrh/interviewer/internal/extraction"
	"github.com/satriahrh/interviewer/internal/gedcomx"
	"github.com/satriahrh/interviewer/internal/websocket"
	"github.com/satriahrh/interviewer/usecase"
)

func setupTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	logger := zaptest.NewLogger(t)

	model := llm.NewMockLLM()
	chat := usecase.NewChatService(model, logger)
	voice := usecase.NewVoiceService(stt.NewMockSpeechToText(logger), tts.NewMockTextToSpeech(), logger)
	normalizer := gedcomx.NewNormalizer()

	interviews := usecase.NewInterviewService(
		adapters.NewMemoryInterviewRepository(),
		chat,
		voice,
		extraction.NewExtractor(model, logger),
		normalizer,
		nil,
		logger,
	)
	hub := websocket.NewHub(interviews, []string{"http://localhost:3000"}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	e := NewServer([]string{"http://localhost:3000"}, logger)
	InitRoutes(e, NewHandler(interviews, chat, voice, normalizer, hub, logger))
	return e
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func multipartRequest(t *testing.T, target string, audio []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if audio != nil {
		part, err := writer.CreateFormFile("audioFile", "recording.mp3")
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(audio)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func startInterview(t *testing.T, e *echo.Echo, language string) StartInterviewResponse {
	t.Helper()
	rec := do(e, jsonRequest(http.MethodPost, "/api/v1/interviews", `{"language": "`+language+`"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp StartInterviewResponse
	decode(t, rec, &resp)
	return resp
}

func TestHealth(t *testing.T) {
	e := setupTestServer(t)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("Unexpected body %s", rec.Body.String())
	}
}

func TestProxyChat(t *testing.T) {
	e := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`[{"role": "user", "content": "My name is John."}]`))
	rec := do(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "What are the names of your parents?" {
		t.Errorf("Unexpected reply %q", rec.Body.String())
	}
	if !strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain) {
		t.Errorf("Expected text/plain, got %s", rec.Header().Get(echo.HeaderContentType))
	}

	for _, body := range []string{`not json`, `[]`, `[{"role": "robot", "content": "hi"}]`} {
		rec = do(e, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))
		if rec.Code != http.StatusInternalServerError || rec.Body.String() != "Error occurred" {
			t.Errorf("Expected 500 Error occurred for %s, got %d %q", body, rec.Code, rec.Body.String())
		}
	}
}

func TestProxyTranscribe(t *testing.T) {
	e := setupTestServer(t)

	req := multipartRequest(t, "/transcribe?language=en", []byte("short audio"), map[string]string{
		"conversation": `[{"role": "system", "content": "prompt"}, {"role": "assistant", "content": "Hello"}]`,
	})
	rec := do(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "My name is John Doe." {
		t.Errorf("Unexpected transcript %q", rec.Body.String())
	}

	rec = do(e, multipartRequest(t, "/transcribe?language=en", nil, nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 without audio, got %d", rec.Code)
	}

	rec = do(e, multipartRequest(t, "/transcribe?language=klingon", []byte("audio"), nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for unknown language, got %d", rec.Code)
	}
}

func TestProxySynthesize(t *testing.T) {
	e := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/synthesize?language=ko-KR", strings.NewReader("Hello"))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := do(e, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SynthesizeResponse
	decode(t, rec, &resp)
	if resp.Base64 != base64.StdEncoding.EncodeToString([]byte("Hello")) {
		t.Errorf("Unexpected audio %q", resp.Base64)
	}

	rec = do(e, httptest.NewRequest(http.MethodPost, "/synthesize?language=en", strings.NewReader("")))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 for empty text, got %d", rec.Code)
	}
}

func TestInterviewFlow(t *testing.T) {
	e := setupTestServer(t)

	started := startInterview(t, e, "korean")
	id := started.Interview.ID
	if id == "" {
		t.Fatal("Expected interview id")
	}
	if started.Interview.Language != "korean" {
		t.Errorf("Expected korean interview, got %s", started.Interview.Language)
	}
	if started.AudioData != base64.StdEncoding.EncodeToString([]byte(started.Greeting)) {
		t.Errorf("Expected greeting audio")
	}
	if len(started.Interview.Messages) != 1 {
		t.Errorf("Expected only the greeting in the transcript, got %d messages", len(started.Interview.Messages))
	}

	rec := do(e, jsonRequest(http.MethodPost, "/api/v1/interviews/"+id+"/messages", `{"text": "My name is John Doe."}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var turn TurnResponse
	decode(t, rec, &turn)
	if turn.Question == "" || !turn.RecordsUpdated {
		t.Errorf("Unexpected turn %+v", turn)
	}

	rec = do(e, multipartRequest(t, "/api/v1/interviews/"+id+"/turns", []byte("spoken answer"), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &turn)
	if turn.Answer != "My name is John Doe." {
		t.Errorf("Unexpected answer %q", turn.Answer)
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/interviews/"+id+"/records", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var records []gedcomx.Record
	decode(t, rec, &records)
	if len(records) != 1 || len(records[0].Persons) != 2 {
		t.Errorf("Expected one record with two persons, got %+v", records)
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/interviews/"+id+"/records.ged", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "1 NAME John /Doe/") {
		t.Errorf("Expected John Doe in GEDCOM export:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), id+".ged") {
		t.Errorf("Unexpected content disposition %s", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "text/vnd.familysearch.gedcom; charset=utf-8" {
		t.Errorf("Unexpected content type %s", got)
	}
	if !strings.HasSuffix(rec.Body.String(), "0 TRLR\n") {
		t.Errorf("Expected a complete GEDCOM document:\n%s", rec.Body.String())
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/interviews/missing/records.ged", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing interview export, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderContentDisposition) != "" {
		t.Error("Failed export should not be sent as an attachment")
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/interviews/"+id, nil))
	var interview InterviewResponse
	decode(t, rec, &interview)
	if len(interview.Messages) != 5 {
		t.Errorf("Expected greeting and two exchanges, got %d messages", len(interview.Messages))
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/interviews", nil))
	var list []InterviewResponse
	decode(t, rec, &list)
	if len(list) != 1 {
		t.Errorf("Expected 1 interview, got %d", len(list))
	}
}

func TestInterviewErrors(t *testing.T) {
	e := setupTestServer(t)
	id := startInterview(t, e, "").Interview.ID

	tests := []struct {
		name     string
		req      *http.Request
		wantCode int
		wantErr  string
	}{
		{"unknown interview", httptest.NewRequest(http.MethodGet, "/api/v1/interviews/missing", nil), http.StatusNotFound, "not_found"},
		{"unknown records", httptest.NewRequest(http.MethodGet, "/api/v1/interviews/missing/records", nil), http.StatusNotFound, "not_found"},
		{"unsupported language", jsonRequest(http.MethodPost, "/api/v1/interviews", `{"language": "klingon"}`), http.StatusBadRequest, "unsupported_language"},
		{"malformed body", jsonRequest(http.MethodPost, "/api/v1/interviews", `{"language":`), http.StatusBadRequest, "invalid_request"},
		{"missing text", jsonRequest(http.MethodPost, "/api/v1/interviews/"+id+"/messages", `{}`), http.StatusBadRequest, "validation_failed"},
		{"blank text", jsonRequest(http.MethodPost, "/api/v1/interviews/"+id+"/messages", `{"text": "   "}`), http.StatusBadRequest, "empty_answer"},
		{"missing audio", multipartRequest(t, "/api/v1/interviews/"+id+"/turns", nil, nil), http.StatusBadRequest, "invalid_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.req)
			if rec.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			var resp ErrorResponse
			decode(t, rec, &resp)
			if resp.Error != tt.wantErr {
				t.Errorf("Expected error %s, got %s", tt.wantErr, resp.Error)
			}
		})
	}
}

func TestInterviewEndAndDelete(t *testing.T) {
	e := setupTestServer(t)
	id := startInterview(t, e, "english").Interview.ID

	for i := 0; i < 2; i++ {
		rec := do(e, httptest.NewRequest(http.MethodPost, "/api/v1/interviews/"+id+"/end", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200 ending interview, got %d", rec.Code)
		}
	}

	rec := do(e, jsonRequest(http.MethodPost, "/api/v1/interviews/"+id+"/messages", `{"text": "hello"}`))
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 after end, got %d", rec.Code)
	}

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/v1/interviews/"+id+"/records", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("Expected empty records after end, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/api/v1/interviews/"+id, nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}

	rec = do(e, httptest.NewRequest(http.MethodDelete, "/api/v1/interviews/"+id, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting twice, got %d", rec.Code)
	}
}

func TestNormalize(t *testing.T) {
	e := setupTestServer(t)

	tests := []struct {
		name    string
		body    string
		wantLen int
	}{
		{"single", `{"persons": [{"id": "p1", "given": "john"}]}`, 1},
		{"list", `[{"persons": []}, {"persons": [{"given": "mary"}]}]`, 2},
		{"wrapped", `{"records": [{"persons": [{"id": "p1"}]}]}`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, jsonRequest(http.MethodPost, "/api/v1/gedcomx/normalize", tt.body))
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			var records []gedcomx.Record
			decode(t, rec, &records)
			if len(records) != tt.wantLen {
				t.Errorf("Expected %d records, got %d", tt.wantLen, len(records))
			}
		})
	}

	rec := do(e, jsonRequest(http.MethodPost, "/api/v1/gedcomx/normalize", `"text"`))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid payload, got %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	e := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := do(e, req)
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "http://localhost:3000" {
		t.Errorf("Expected allowed origin, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set(echo.HeaderOrigin, "http://evil.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec = do(e, req)
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "" {
		t.Errorf("Expected no allowed origin for foreign origin, got %q", got)
	}
}

func TestLanguages(t *testing.T) {
	e := setupTestServer(t)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/v1/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ko-KR"`) {
		t.Errorf("Expected korean in languages, got %s", rec.Body.String())
	}
}
