package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/interviewer/internal/gedcomx"
)

// InterviewerPrompt steers the language model for the whole interview.
const InterviewerPrompt = `You are an interviewer. Your goal is to learn about my family history. Ask questions to learn about me, my family, and my ancestors so that I can trace my lineage. Ask questions to recover vital information like birth, death, marriage, etc...
Be professional, sincere, and polite.
Ask one question at a time. Keep questions short if possible. Do not roleplay by yourself.`

// DefaultIdleTimeout ends interviews nobody has spoken to for a while
const DefaultIdleTimeout = 30 * time.Minute

// InterviewStatus represents the status of an interview
type InterviewStatus string

const (
	InterviewStatusActive InterviewStatus = "active"
	InterviewStatusEnded  InterviewStatus = "ended"
)

// MessageRole represents the role of a message sender
type MessageRole string

const (
	MessageRoleSystem    MessageRole = "system"
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message is a single utterance of the interview
type Message struct {
	Timestamp time.Time   `json:"timestamp"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
}

// Interview is one family-history conversation and the records extracted so far
type Interview struct {
	ID           string           `json:"id"`
	Language     Language         `json:"language"`
	Status       InterviewStatus  `json:"status"`
	Messages     []Message        `json:"messages"`
	Records      []gedcomx.Record `json:"records"`
	CreatedAt    time.Time        `json:"created_at"`
	LastActiveAt time.Time        `json:"last_active_at"`
	EndedAt      *time.Time       `json:"ended_at,omitempty"`
}

// NewInterview starts an interview seeded with the interviewer prompt and the
// greeting of the language
func NewInterview(language Language) *Interview {
	now := time.Now()
	interview := &Interview{
		ID:           uuid.NewString(),
		Language:     language,
		Status:       InterviewStatusActive,
		Messages:     make([]Message, 0, 2),
		Records:      make([]gedcomx.Record, 0),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	interview.AddMessage(MessageRoleSystem, InterviewerPrompt)
	interview.AddMessage(MessageRoleAssistant, language.Greeting)
	return interview
}

// AddMessage appends a message and refreshes the activity timestamp
func (i *Interview) AddMessage(role MessageRole, content string) {
	now := time.Now()
	i.Messages = append(i.Messages, Message{
		Timestamp: now,
		Role:      role,
		Content:   content,
	})
	i.LastActiveAt = now
}

// SetRecords replaces the records extracted from the conversation
func (i *Interview) SetRecords(records []gedcomx.Record) {
	if records == nil {
		records = make([]gedcomx.Record, 0)
	}
	i.Records = records
}

// End marks the interview as ended
func (i *Interview) End() {
	if i.Status == InterviewStatusEnded {
		return
	}
	now := time.Now()
	i.Status = InterviewStatusEnded
	i.EndedAt = &now
}

// IsActive reports whether turns can still be taken
func (i *Interview) IsActive() bool {
	return i.Status == InterviewStatusActive
}

// IsIdleSince checks whether the interview's last activity is before cutoff
func (i *Interview) IsIdleSince(cutoff time.Time) bool {
	return i.LastActiveAt.Before(cutoff)
}

// Transcript returns the messages without the system prompts
func (i *Interview) Transcript() []Message {
	transcript := make([]Message, 0, len(i.Messages))
	for _, m := range i.Messages {
		if m.Role == MessageRoleSystem {
			continue
		}
		transcript = append(transcript, m)
	}
	return transcript
}

// Clone returns a copy that shares no slices with i
func (i *Interview) Clone() *Interview {
	c := *i
	c.Messages = append([]Message(nil), i.Messages...)
	c.Records = append([]gedcomx.Record(nil), i.Records...)
	if c.Records == nil {
		c.Records = make([]gedcomx.Record, 0)
	}
	if i.EndedAt != nil {
		endedAt := *i.EndedAt
		c.EndedAt = &endedAt
	}
	return &c
}

// Validate validates the interview data
func (i *Interview) Validate() error {
	if i.ID == "" {
		return errors.New("id is required")
	}
	if i.Language.Code == "" {
		return errors.New("language is required")
	}
	if i.Status != InterviewStatusActive && i.Status != InterviewStatusEnded {
		return errors.New("invalid interview status")
	}
	return nil
}
