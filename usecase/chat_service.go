package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/entities"
	"github.com/satriahrh/interviewer/domain/repositories"
)

// ChatService handles conversation logic
type ChatService struct {
	llm    repositories.LargeLanguageModel
	logger *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(llm repositories.LargeLanguageModel, logger *zap.Logger) *ChatService {
	return &ChatService{llm: llm, logger: logger}
}

// Complete returns the model's reply to the conversation as is
func (s *ChatService) Complete(ctx context.Context, messages []repositories.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("at least one message is required")
	}
	for _, m := range messages {
		if !m.Role.Valid() {
			return "", fmt.Errorf("invalid message role %q", m.Role)
		}
	}

	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.Content), nil
}

// NextQuestion asks the model for the interviewer's next question. The
// interviewer prompt is repeated as the last message.
func (s *ChatService) NextQuestion(ctx context.Context, messages []repositories.ChatMessage) (string, error) {
	guided := make([]repositories.ChatMessage, 0, len(messages)+1)
	guided = append(guided, messages...)
	guided = append(guided, repositories.ChatMessage{
		Role:    repositories.SystemRole,
		Content: entities.InterviewerPrompt,
	})

	question, err := s.Complete(ctx, guided)
	if err != nil {
		return "", fmt.Errorf("failed to generate next question: %w", err)
	}
	if question == "" {
		return "", fmt.Errorf("model returned an empty question")
	}

	s.logger.Debug("Next question generated", zap.String("question", question))
	return question, nil
}

// ChatMessages converts interview messages to the model's format
func ChatMessages(messages []entities.Message) []repositories.ChatMessage {
	out := make([]repositories.ChatMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, repositories.ChatMessage{
			Role:    repositories.Role(m.Role),
			Content: m.Content,
		})
	}
	return out
}
