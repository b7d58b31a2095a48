package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/satriahrh/interviewer/internal/gedcomx"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeRecordsUpdate MessageType = "records_update"
	MessageTypeAnswer        MessageType = "answer"
	MessageTypeQuestion      MessageType = "question"
	MessageTypePing          MessageType = "ping"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type" validate:"required"`
	Timestamp string      `json:"timestamp"`
}

// RecordsUpdateMessage carries the current records of an interview
type RecordsUpdateMessage struct {
	BaseMessage
	InterviewID string                         `json:"interview_id"`
	Records     gedcomx.Payload[gedcomx.Record] `json:"records"`
}

// AnswerMessage is a typed answer sent by the viewer
type AnswerMessage struct {
	BaseMessage
	Text string `json:"text" validate:"required,max=4000"`
}

// QuestionMessage is the interviewer's reply to an answer
type QuestionMessage struct {
	BaseMessage
	InterviewID string `json:"interview_id"`
	Answer      string `json:"answer"`
	Question    string `json:"question"`
	AudioData   string `json:"audio_data,omitempty"` // base64 encoded MP3
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct {
	validate *validator.Validate
}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{validate: validator.New()}
}

// ValidateMessage validates an incoming message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeAnswer:
		var msg AnswerMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid answer message: %w", err)
		}
		if err := v.validate.Struct(&msg); err != nil {
			return nil, fmt.Errorf("invalid answer message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

// CreateRecordsUpdateMessage wraps records for the viewer
func CreateRecordsUpdateMessage(interviewID string, records []gedcomx.Record) *RecordsUpdateMessage {
	return &RecordsUpdateMessage{
		BaseMessage: BaseMessage{Type: MessageTypeRecordsUpdate, Timestamp: now()},
		InterviewID: interviewID,
		Records:     gedcomx.ListPayload(records),
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{Type: MessageTypeError, Timestamp: now()},
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: BaseMessage{Type: MessageTypePong, Timestamp: now()},
		Data:        data,
	}
}
