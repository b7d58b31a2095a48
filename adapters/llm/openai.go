package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/repositories"
)

const defaultOpenAIModel = "gpt-3.5-turbo"

// OpenAIConfig holds configuration for the OpenAI chat adapter
type OpenAIConfig struct {
	APIKey      string  // Required
	BaseURL     string  // Optional: OpenAI compatible endpoint
	Model       string  // Optional: defaults to gpt-3.5-turbo
	Temperature float64 // Optional: provider default when zero
	MaxTokens   int     // Optional: provider default when zero
}

// OpenAILLM implements LargeLanguageModel on top of langchaingo
type OpenAILLM struct {
	model       llms.Model
	modelName   string
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

var _ repositories.LargeLanguageModel = (*OpenAILLM)(nil)

// ValidateOpenAIConfig validates the OpenAIConfig
func ValidateOpenAIConfig(config OpenAIConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", config.Temperature)
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be positive, got %d", config.MaxTokens)
	}
	return nil
}

// NewOpenAIConfigFromEnv reads OPENAI_* environment variables
func NewOpenAIConfigFromEnv() OpenAIConfig {
	return OpenAIConfig{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		BaseURL: os.Getenv("OPENAI_BASE_URL"),
		Model:   os.Getenv("OPENAI_MODEL"),
	}
}

// NewOpenAILLM creates a new OpenAI chat adapter
func NewOpenAILLM(config OpenAIConfig, logger *zap.Logger) (*OpenAILLM, error) {
	if err := ValidateOpenAIConfig(config); err != nil {
		return nil, err
	}

	modelName := config.Model
	if modelName == "" {
		modelName = defaultOpenAIModel
		logger.Info("Using default model", zap.String("model", modelName))
	}

	opts := []openai.Option{
		openai.WithModel(modelName),
		openai.WithToken(config.APIKey),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	llm := NewOpenAILLMWithModel(client, logger)
	llm.modelName = modelName
	llm.temperature = config.Temperature
	llm.maxTokens = config.MaxTokens
	return llm, nil
}

// NewOpenAILLMWithModel wraps an existing langchaingo model
func NewOpenAILLMWithModel(model llms.Model, logger *zap.Logger) *OpenAILLM {
	return &OpenAILLM{
		model:     model,
		modelName: defaultOpenAIModel,
		logger:    logger,
	}
}

// Complete sends the conversation to the chat completion endpoint
func (o *OpenAILLM) Complete(ctx context.Context, messages []repositories.ChatMessage) (repositories.ChatMessage, error) {
	if len(messages) == 0 {
		return repositories.ChatMessage{}, fmt.Errorf("at least one message is required")
	}

	var opts []llms.CallOption
	if o.temperature > 0 {
		opts = append(opts, llms.WithTemperature(o.temperature))
	}
	if o.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.maxTokens))
	}

	resp, err := o.model.GenerateContent(ctx, toMessageContents(messages), opts...)
	if err != nil {
		o.logger.Error("Failed to generate chat completion",
			zap.String("model", o.modelName),
			zap.Error(err))
		return repositories.ChatMessage{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return repositories.ChatMessage{}, fmt.Errorf("chat completion returned no choices")
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	o.logger.Debug("Chat completion received",
		zap.String("model", o.modelName),
		zap.Int("messages", len(messages)),
		zap.String("response_preview", preview(content)))

	return repositories.ChatMessage{
		Role:    repositories.AssistantRole,
		Content: content,
	}, nil
}

func toMessageContents(messages []repositories.ChatMessage) []llms.MessageContent {
	contents := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		contents = append(contents, llms.TextParts(messageType(msg.Role), msg.Content))
	}
	return contents
}

func messageType(role repositories.Role) llms.ChatMessageType {
	switch role {
	case repositories.SystemRole:
		return llms.ChatMessageTypeSystem
	case repositories.AssistantRole:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func preview(s string) string {
	const n = 50
	if len(s) <= n {
		return s
	}
	return s[:n]
}
