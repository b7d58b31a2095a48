package api

import (
	"time"

	"github.com/satriahrh/interviewer/domain/entities"
	"github.com/satriahrh/interviewer/internal/gedcomx"
)

// StartInterviewRequest represents the request payload for starting an interview
type StartInterviewRequest struct {
	Language string `json:"language" validate:"omitempty,max=32"`
}

// ReplyRequest represents a typed answer
type ReplyRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

// InterviewResponse summarizes an interview
type InterviewResponse struct {
	ID           string                          `json:"id"`
	Language     string                          `json:"language"`
	Status       entities.InterviewStatus        `json:"status"`
	Messages     []entities.Message              `json:"messages"`
	Records      gedcomx.Payload[gedcomx.Record] `json:"records"`
	CreatedAt    time.Time                       `json:"created_at"`
	LastActiveAt time.Time                       `json:"last_active_at"`
	EndedAt      *time.Time                      `json:"ended_at,omitempty"`
}

// StartInterviewResponse carries the new interview and its spoken greeting
type StartInterviewResponse struct {
	Interview InterviewResponse `json:"interview"`
	Greeting  string            `json:"greeting"`
	AudioData string            `json:"audio_data,omitempty"` // base64 encoded MP3
}

// TurnResponse carries the outcome of one answer
type TurnResponse struct {
	InterviewID    string `json:"interview_id"`
	Answer         string `json:"answer"`
	Question       string `json:"question"`
	AudioData      string `json:"audio_data,omitempty"` // base64 encoded MP3
	RecordsUpdated bool   `json:"records_updated"`
}

// SynthesizeResponse carries synthesized speech
type SynthesizeResponse struct {
	Base64 string `json:"base64"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func newInterviewResponse(interview *entities.Interview) InterviewResponse {
	return InterviewResponse{
		ID:           interview.ID,
		Language:     interview.Language.Name,
		Status:       interview.Status,
		Messages:     interview.Transcript(),
		Records:      gedcomx.ListPayload(interview.Records),
		CreatedAt:    interview.CreatedAt,
		LastActiveAt: interview.LastActiveAt,
		EndedAt:      interview.EndedAt,
	}
}
