package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"go.uber.org/zap"

	"github.com/satriahrh/interviewer/domain/repositories"
	"github.com/satriahrh/interviewer/internal/gedcomx"
)

// ErrUnparseableExtraction is returned when the model output is not JSON,
// even after repair
var ErrUnparseableExtraction = errors.New("unparseable extraction")

// Extractor asks a language model for the vital data of a conversation
type Extractor struct {
	llm    repositories.LargeLanguageModel
	logger *zap.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(llm repositories.LargeLanguageModel, logger *zap.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract returns the raw records found in the conversation
func (e *Extractor) Extract(ctx context.Context, messages []repositories.ChatMessage) ([]gedcomx.RawRecord, error) {
	reply, err := e.llm.Complete(ctx, Request(messages))
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	records, err := Parse(reply.Content)
	if err != nil {
		e.logger.Warn("Could not parse extraction",
			zap.String("response_preview", truncate(reply.Content, 200)),
			zap.Error(err))
		return nil, err
	}

	e.logger.Debug("Records extracted", zap.Int("records", len(records)))
	return records, nil
}

// Parse decodes model output into raw records. Markdown fences and common
// JSON mistakes are tolerated.
func Parse(output string) ([]gedcomx.RawRecord, error) {
	text := stripFences(output)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrUnparseableExtraction)
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableExtraction, err)
	}

	payload, err := gedcomx.DecodeRawPayload([]byte(repaired))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseableExtraction, err)
	}
	return payload.Records, nil
}

// stripFences keeps what is inside the first ``` block, if any
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	// drop the language tag line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
