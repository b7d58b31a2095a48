package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/interviewer/internal/gedcomx"
)

func TestInterviewCreation(t *testing.T) {
	interview := NewInterview(DefaultLanguage)

	if interview.ID == "" {
		t.Error("Expected generated interview ID")
	}

	if interview.Status != InterviewStatusActive {
		t.Errorf("Expected status %s, got %s", InterviewStatusActive, interview.Status)
	}

	if len(interview.Messages) != 2 {
		t.Fatalf("Expected system prompt and greeting, got %d messages", len(interview.Messages))
	}

	if interview.Messages[0].Role != MessageRoleSystem || interview.Messages[0].Content != InterviewerPrompt {
		t.Errorf("Expected interviewer prompt first, got %+v", interview.Messages[0])
	}

	if interview.Messages[1].Role != MessageRoleAssistant || interview.Messages[1].Content != DefaultLanguage.Greeting {
		t.Errorf("Expected greeting second, got %+v", interview.Messages[1])
	}

	if interview.Records == nil {
		t.Error("Expected empty records list, got nil")
	}
}

func TestInterviewTranscript(t *testing.T) {
	interview := NewInterview(DefaultLanguage)
	interview.AddMessage(MessageRoleUser, "My name is John.")

	transcript := interview.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("Expected 2 transcript messages, got %d", len(transcript))
	}
	for _, m := range transcript {
		if m.Role == MessageRoleSystem {
			t.Error("Transcript should not contain system messages")
		}
	}
}

func TestInterviewIdle(t *testing.T) {
	interview := NewInterview(DefaultLanguage)

	if interview.IsIdleSince(time.Now().Add(-DefaultIdleTimeout)) {
		t.Error("Interview should not be idle initially")
	}

	interview.LastActiveAt = time.Now().Add(-31 * time.Minute)
	if !interview.IsIdleSince(time.Now().Add(-DefaultIdleTimeout)) {
		t.Error("Interview should be idle after 31 minutes")
	}

	interview.AddMessage(MessageRoleUser, "Hello")
	if interview.IsIdleSince(time.Now().Add(-DefaultIdleTimeout)) {
		t.Error("Adding a message should refresh activity")
	}
}

func TestInterviewEnd(t *testing.T) {
	interview := NewInterview(DefaultLanguage)
	interview.End()

	if interview.IsActive() {
		t.Error("Ended interview should not be active")
	}
	if interview.EndedAt == nil {
		t.Fatal("Expected EndedAt to be set")
	}

	endedAt := *interview.EndedAt
	interview.End()
	if !interview.EndedAt.Equal(endedAt) {
		t.Error("Ending twice should keep the first timestamp")
	}
}

func TestInterviewClone(t *testing.T) {
	interview := NewInterview(DefaultLanguage)
	interview.SetRecords(gedcomx.Normalize([]gedcomx.RawRecord{{}}))

	clone := interview.Clone()
	clone.AddMessage(MessageRoleUser, "only on the clone")
	clone.Records[0].Persons = append(clone.Records[0].Persons, gedcomx.Person{ID: "x"})
	clone.SetRecords(nil)

	if len(interview.Messages) != 2 {
		t.Errorf("Clone should not share messages, original has %d", len(interview.Messages))
	}
	if len(interview.Records) != 1 {
		t.Errorf("Clone should not share records, original has %d", len(interview.Records))
	}
	if clone.Records == nil {
		t.Error("SetRecords(nil) should store an empty list")
	}
}

func TestInterviewValidation(t *testing.T) {
	interview := NewInterview(DefaultLanguage)
	if err := interview.Validate(); err != nil {
		t.Errorf("Valid interview should not have validation errors, got: %v", err)
	}

	interview.Status = InterviewStatus("invalid")
	if err := interview.Validate(); err == nil {
		t.Error("Interview with invalid status should have validation error")
	}

	interview.Status = InterviewStatusActive
	interview.ID = ""
	if err := interview.Validate(); err == nil {
		t.Error("Interview without ID should have validation error")
	}
}

func TestLookupLanguage(t *testing.T) {
	tests := []struct {
		key      string
		wantCode string
		wantErr  bool
	}{
		{"", "en", false},
		{"english", "en", false},
		{"EN", "en", false},
		{"korean", "ko", false},
		{"ko", "ko", false},
		{"ko-KR", "ko", false},
		{"klingon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			language, err := LookupLanguage(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedLanguage) {
					t.Errorf("Expected ErrUnsupportedLanguage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if language.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, language.Code)
			}
		})
	}
}
