package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/entities"
	"github.com/satriahrh/interviewer/domain/repositories"
	"github.com/satriahrh/interviewer/internal/extraction"
	"github.com/satriahrh/interviewer/internal/gedcom"
	"github.com/satriahrh/interviewer/internal/gedcomx"
	"github.com/satriahrh/interviewer/internal/websocket"
	"github.com/satriahrh/interviewer/usecase"
)

// Maximum size of an uploaded recording.
const maxAudioSize = 25 << 20

// Handler serves the HTTP API
type Handler struct {
	interviews *usecase.InterviewService
	chat       *usecase.ChatService
	voice      *usecase.VoiceService
	normalizer *gedcomx.Normalizer
	hub        *websocket.Hub
	logger     *zap.Logger
}

// NewHandler creates the API handler
func NewHandler(
	interviews *usecase.InterviewService,
	chat *usecase.ChatService,
	voice *usecase.VoiceService,
	normalizer *gedcomx.Normalizer,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Handler {
	if normalizer == nil {
		normalizer = gedcomx.NewNormalizer()
	}
	return &Handler{
		interviews: interviews,
		chat:       chat,
		voice:      voice,
		normalizer: normalizer,
		hub:        hub,
		logger:     logger,
	}
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handler) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "interviewer-server",
		})
	})

	// Provider proxies used by the browser client
	e.POST("/chat", h.proxyChat)
	e.POST("/transcribe", h.proxyTranscribe)
	e.POST("/synthesize", h.proxySynthesize)

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.GET("/languages", h.listLanguages)

	interviews := v1.Group("/interviews")
	interviews.POST("", h.startInterview)
	interviews.GET("", h.listInterviews)
	interviews.GET("/:id", h.getInterview)
	interviews.DELETE("/:id", h.deleteInterview)
	interviews.POST("/:id/end", h.endInterview)
	interviews.POST("/:id/turns", h.takeTurn)
	interviews.POST("/:id/messages", h.reply)
	interviews.GET("/:id/records", h.getRecords)
	interviews.GET("/:id/records.ged", h.exportRecords)

	v1.POST("/gedcomx/normalize", h.normalize)

	// Live records of an interview
	e.GET("/ws/interviews/:id", func(c echo.Context) error {
		if err := websocket.HandleWebSocket(h.hub, c, c.Param("id"), h.logger); err != nil {
			return h.respondError(c, err)
		}
		return nil
	})
}

// proxyChat forwards a conversation to the language model and returns the
// reply as plain text
func (h *Handler) proxyChat(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return h.proxyError(c, err)
	}

	var messages []repositories.ChatMessage
	if err := json.Unmarshal(body, &messages); err != nil {
		return h.proxyError(c, fmt.Errorf("invalid conversation: %w", err))
	}

	reply, err := h.chat.Complete(c.Request().Context(), messages)
	if err != nil {
		return h.proxyError(c, err)
	}
	return c.String(http.StatusOK, reply)
}

// proxyTranscribe transcribes an uploaded recording using the conversation
// as a hint
func (h *Handler) proxyTranscribe(c echo.Context) error {
	language, err := entities.LookupLanguage(c.QueryParam("language"))
	if err != nil {
		return h.proxyError(c, err)
	}

	audio, filename, err := readAudioFile(c)
	if err != nil {
		return h.proxyError(c, err)
	}

	var conversation []repositories.ChatMessage
	if raw := c.FormValue("conversation"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &conversation); err != nil {
			return h.proxyError(c, fmt.Errorf("invalid conversation: %w", err))
		}
	}

	text, err := h.voice.Transcribe(c.Request().Context(), audio, filename, language, extraction.ConversationText(conversation))
	if err != nil {
		return h.proxyError(c, err)
	}
	return c.String(http.StatusOK, text)
}

// proxySynthesize speaks the request body in the requested language
func (h *Handler) proxySynthesize(c echo.Context) error {
	language, err := entities.LookupLanguage(c.QueryParam("language"))
	if err != nil {
		return h.proxyError(c, err)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return h.proxyError(c, err)
	}

	audio, err := h.voice.Synthesize(c.Request().Context(), string(body), language)
	if err != nil {
		return h.proxyError(c, err)
	}
	return c.JSON(http.StatusOK, SynthesizeResponse{Base64: base64.StdEncoding.EncodeToString(audio)})
}

// proxyError answers the way the browser client expects from the proxies
func (h *Handler) proxyError(c echo.Context, err error) error {
	h.logger.Error("Proxy request failed",
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.String(http.StatusInternalServerError, "Error occurred")
}

func (h *Handler) listLanguages(c echo.Context) error {
	return c.JSON(http.StatusOK, entities.Languages())
}

func (h *Handler) startInterview(c echo.Context) error {
	var req StartInterviewRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.interviews.Start(c.Request().Context(), req.Language)
	if err != nil {
		return h.respondError(c, err)
	}

	return c.JSON(http.StatusCreated, StartInterviewResponse{
		Interview: newInterviewResponse(result.Interview),
		Greeting:  result.Interview.Language.Greeting,
		AudioData: encodeAudio(result.Audio),
	})
}

func (h *Handler) listInterviews(c echo.Context) error {
	interviews, err := h.interviews.List(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}

	response := make([]InterviewResponse, 0, len(interviews))
	for _, interview := range interviews {
		response = append(response, newInterviewResponse(interview))
	}
	return c.JSON(http.StatusOK, response)
}

func (h *Handler) getInterview(c echo.Context) error {
	interview, err := h.interviews.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, newInterviewResponse(interview))
}

func (h *Handler) deleteInterview(c echo.Context) error {
	if err := h.interviews.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return h.respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) endInterview(c echo.Context) error {
	interview, err := h.interviews.End(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, newInterviewResponse(interview))
}

func (h *Handler) takeTurn(c echo.Context) error {
	audio, filename, err := readAudioFile(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}

	result, err := h.interviews.Turn(c.Request().Context(), c.Param("id"), audio, filename)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, newTurnResponse(result))
}

func (h *Handler) reply(c echo.Context) error {
	var req ReplyRequest
	if err := h.bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	result, err := h.interviews.Reply(c.Request().Context(), c.Param("id"), req.Text)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, newTurnResponse(result))
}

func (h *Handler) getRecords(c echo.Context) error {
	records, err := h.interviews.Records(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, gedcomx.ListPayload(records))
}

func (h *Handler) exportRecords(c echo.Context) error {
	id := c.Param("id")
	records, err := h.interviews.Records(c.Request().Context(), id)
	if err != nil {
		return h.respondError(c, err)
	}

	var buf bytes.Buffer
	if err := gedcom.Encode(&buf, records); err != nil {
		return h.respondError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", id+".ged"))
	return c.Blob(http.StatusOK, "text/vnd.familysearch.gedcom; charset=utf-8", buf.Bytes())
}

// normalize accepts extraction output in any of its shapes and returns the
// normalized records as a list
func (h *Handler) normalize(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return h.respondError(c, err)
	}

	payload, err := gedcomx.DecodeRawPayload(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_payload",
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, gedcomx.ListPayload(h.normalizer.Normalize(payload.Records)))
}

func (h *Handler) bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

var errInvalidRequest = errors.New("invalid request format")

// respondError maps domain errors to status codes
func (h *Handler) respondError(c echo.Context, err error) error {
	var validationErrors validator.ValidationErrors

	switch {
	case errors.Is(err, repositories.ErrInterviewNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error()})
	case errors.Is(err, usecase.ErrInterviewEnded):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "interview_ended", Message: err.Error()})
	case errors.Is(err, entities.ErrUnsupportedLanguage):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported_language", Message: err.Error()})
	case errors.Is(err, usecase.ErrEmptyAnswer):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty_answer", Message: err.Error()})
	case errors.Is(err, errInvalidRequest):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: err.Error()})
	case errors.As(err, &validationErrors):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_failed", Message: validationErrors.Error()})
	}

	h.logger.Error("Request failed",
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Something went wrong",
	})
}

func readAudioFile(c echo.Context) ([]byte, string, error) {
	file, err := c.FormFile("audioFile")
	if err != nil {
		return nil, "", fmt.Errorf("audioFile is required: %w", err)
	}
	if file.Size > maxAudioSize {
		return nil, "", fmt.Errorf("audioFile is larger than %d bytes", maxAudioSize)
	}

	src, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audioFile: %w", err)
	}
	defer src.Close()

	audio, err := io.ReadAll(src)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read audioFile: %w", err)
	}
	return audio, file.Filename, nil
}

func newTurnResponse(result *usecase.TurnResult) TurnResponse {
	return TurnResponse{
		InterviewID:    result.Interview.ID,
		Answer:         result.Answer,
		Question:       result.Question,
		AudioData:      encodeAudio(result.Audio),
		RecordsUpdated: result.RecordsUpdated,
	}
}

func encodeAudio(audio []byte) string {
	if len(audio) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(audio)
}
