package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/satriahrh/interviewer/domain/repositories"
)

// extractionMarker identifies an extraction request among chat requests
const extractionMarker = "Extract the vital data"

// MockExtraction is what MockLLM answers to extraction requests. It is fenced
// and carries trailing commas like real model output often does.
const MockExtraction = "```json\n" + `{
  "persons": [
    {"id": "p1", "given": "John", "surname": "Doe", "gender": "M", "facts": [{"type": "birth", "date": "3 July 1840", "place": "Boston"},]},
    {"id": "p2", "given": "Jane", "surname": "Doe", "gender": "F"},
  ],
  "relationships": [{"type": "couple", "person1": "p1", "person2": "p2"}],
  "recordFact": {"type": "birth", "date": "3 July 1840", "place": "Boston"},
}` + "\n```"

var mockQuestions = []string{
	"Thank you. Where were you born?",
	"What are the names of your parents?",
	"When and where were your parents married?",
	"Do you know where your grandparents were born?",
}

// MockLLM is a scripted LargeLanguageModel for local runs and tests
type MockLLM struct {
	mu    sync.Mutex
	calls [][]repositories.ChatMessage
	Err   error
}

var _ repositories.LargeLanguageModel = (*MockLLM)(nil)

// NewMockLLM creates a new mock language model
func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// Complete implements LargeLanguageModel
func (m *MockLLM) Complete(ctx context.Context, messages []repositories.ChatMessage) (repositories.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return repositories.ChatMessage{}, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, append([]repositories.ChatMessage(nil), messages...))
	m.mu.Unlock()

	if m.Err != nil {
		return repositories.ChatMessage{}, m.Err
	}

	for _, msg := range messages {
		if strings.Contains(msg.Content, extractionMarker) {
			return repositories.ChatMessage{Role: repositories.AssistantRole, Content: MockExtraction}, nil
		}
	}

	answers := 0
	for _, msg := range messages {
		if msg.Role == repositories.UserRole {
			answers++
		}
	}
	question := mockQuestions[answers%len(mockQuestions)]
	return repositories.ChatMessage{Role: repositories.AssistantRole, Content: question}, nil
}

// Calls returns the conversations the mock has received
func (m *MockLLM) Calls() [][]repositories.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]repositories.ChatMessage(nil), m.calls...)
}
