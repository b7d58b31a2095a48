package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/interviewer/domain/entities"
	"github.com/satriahrh/interviewer/domain/repositories"
	"github.com/satriahrh/interviewer/internal/extraction"
	"github.com/satriahrh/interviewer/internal/gedcomx"
)

var (
	// ErrInterviewEnded is returned for turns on an ended interview
	ErrInterviewEnded = errors.New("interview has ended")
	// ErrEmptyAnswer is returned when nothing was said or typed
	ErrEmptyAnswer = errors.New("answer is empty")
)

// RecordExtractor finds raw records in a conversation
type RecordExtractor interface {
	Extract(ctx context.Context, messages []repositories.ChatMessage) ([]gedcomx.RawRecord, error)
}

// RecordPublisher is told whenever the records of an interview change
type RecordPublisher interface {
	PublishRecords(interviewID string, records []gedcomx.Record)
}

// StartResult is a new interview with its spoken greeting
type StartResult struct {
	Interview *entities.Interview
	Audio     []byte
}

// TurnResult is the outcome of one answer
type TurnResult struct {
	Interview      *entities.Interview
	Answer         string
	Question       string
	Audio          []byte
	RecordsUpdated bool
}

// InterviewService runs family-history interviews
type InterviewService struct {
	repo       repositories.InterviewRepository
	chat       *ChatService
	voice      *VoiceService
	extractor  RecordExtractor
	normalizer *gedcomx.Normalizer
	publisher  RecordPublisher
	logger     *zap.Logger

	mu    sync.Mutex
	locks map[string]*interviewLock
}

// interviewLock is dropped from the lock table once no caller holds or
// waits on it
type interviewLock struct {
	sync.Mutex
	refs int
}

// NewInterviewService creates a new interview service. publisher may be nil.
func NewInterviewService(
	repo repositories.InterviewRepository,
	chat *ChatService,
	voice *VoiceService,
	extractor RecordExtractor,
	normalizer *gedcomx.Normalizer,
	publisher RecordPublisher,
	logger *zap.Logger,
) *InterviewService {
	if normalizer == nil {
		normalizer = gedcomx.NewNormalizer()
	}
	return &InterviewService{
		repo:       repo,
		chat:       chat,
		voice:      voice,
		extractor:  extractor,
		normalizer: normalizer,
		publisher:  publisher,
		logger:     logger,
		locks:      make(map[string]*interviewLock),
	}
}

// Start creates an interview and speaks the greeting
func (s *InterviewService) Start(ctx context.Context, languageKey string) (*StartResult, error) {
	language, err := entities.LookupLanguage(languageKey)
	if err != nil {
		return nil, err
	}

	interview := entities.NewInterview(language)
	if err := s.repo.Create(ctx, interview); err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}

	s.logger.Info("Interview started",
		zap.String("interviewID", interview.ID),
		zap.String("language", language.Code))

	audio, err := s.voice.Synthesize(ctx, language.Greeting, language)
	if err != nil {
		s.logger.Warn("Failed to synthesize greeting",
			zap.String("interviewID", interview.ID),
			zap.Error(err))
	}

	return &StartResult{Interview: interview, Audio: audio}, nil
}

// Get returns an interview
func (s *InterviewService) Get(ctx context.Context, id string) (*entities.Interview, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every interview
func (s *InterviewService) List(ctx context.Context) ([]*entities.Interview, error) {
	return s.repo.List(ctx)
}

// Turn transcribes a spoken answer and continues the interview with it
func (s *InterviewService) Turn(ctx context.Context, id string, audio []byte, filename string) (*TurnResult, error) {
	unlock := s.lock(id)
	defer unlock()

	interview, err := s.active(ctx, id)
	if err != nil {
		return nil, err
	}

	conversation := extraction.ConversationText(ChatMessages(interview.Messages))
	answer, err := s.voice.Transcribe(ctx, audio, filename, interview.Language, conversation)
	if err != nil {
		return nil, err
	}

	return s.answer(ctx, interview, answer)
}

// Reply continues the interview with a typed answer
func (s *InterviewService) Reply(ctx context.Context, id string, text string) (*TurnResult, error) {
	unlock := s.lock(id)
	defer unlock()

	interview, err := s.active(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.answer(ctx, interview, text)
}

func (s *InterviewService) answer(ctx context.Context, interview *entities.Interview, answer string) (*TurnResult, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	interview.AddMessage(entities.MessageRoleUser, answer)
	messages := ChatMessages(interview.Messages)

	var (
		question string
		records  []gedcomx.Record
		updated  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := s.extractor.Extract(gctx, messages)
		if err != nil {
			// Keep the previous records
			s.logger.Warn("Record extraction failed",
				zap.String("interviewID", interview.ID),
				zap.Error(err))
			return nil
		}
		records = s.normalizer.Normalize(raw)
		updated = true
		return nil
	})
	g.Go(func() error {
		var err error
		question, err = s.chat.NextQuestion(gctx, messages)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	audio, err := s.voice.Synthesize(ctx, question, interview.Language)
	if err != nil {
		s.logger.Warn("Failed to synthesize question",
			zap.String("interviewID", interview.ID),
			zap.Error(err))
	}

	interview.AddMessage(entities.MessageRoleAssistant, question)
	if updated {
		interview.SetRecords(records)
	}
	if err := s.repo.Update(ctx, interview); err != nil {
		return nil, fmt.Errorf("failed to save interview: %w", err)
	}

	if updated && s.publisher != nil {
		s.publisher.PublishRecords(interview.ID, interview.Records)
	}

	s.logger.Info("Interview turn completed",
		zap.String("interviewID", interview.ID),
		zap.Int("messages", len(interview.Messages)),
		zap.Int("records", len(interview.Records)),
		zap.Bool("recordsUpdated", updated))

	return &TurnResult{
		Interview:      interview,
		Answer:         answer,
		Question:       question,
		Audio:          audio,
		RecordsUpdated: updated,
	}, nil
}

// Records returns the records extracted so far
func (s *InterviewService) Records(ctx context.Context, id string) ([]gedcomx.Record, error) {
	interview, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return interview.Records, nil
}

// End stops an interview. Ending twice is not an error.
func (s *InterviewService) End(ctx context.Context, id string) (*entities.Interview, error) {
	unlock := s.lock(id)
	defer unlock()

	interview, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !interview.IsActive() {
		return interview, nil
	}

	interview.End()
	if err := s.repo.Update(ctx, interview); err != nil {
		return nil, fmt.Errorf("failed to end interview: %w", err)
	}

	s.logger.Info("Interview ended", zap.String("interviewID", id))
	return interview, nil
}

// Delete removes an interview
func (s *InterviewService) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	return s.repo.Delete(ctx, id)
}

// EndIdle ends active interviews without activity for longer than idle
func (s *InterviewService) EndIdle(ctx context.Context, idle time.Duration) (int, error) {
	interviews, err := s.repo.ListIdleSince(ctx, time.Now().Add(-idle))
	if err != nil {
		return 0, fmt.Errorf("failed to list idle interviews: %w", err)
	}

	ended := 0
	for _, interview := range interviews {
		if _, err := s.End(ctx, interview.ID); err != nil {
			if errors.Is(err, repositories.ErrInterviewNotFound) {
				continue
			}
			return ended, err
		}
		ended++
	}
	return ended, nil
}

func (s *InterviewService) active(ctx context.Context, id string) (*entities.Interview, error) {
	interview, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !interview.IsActive() {
		return nil, ErrInterviewEnded
	}
	return interview, nil
}

// lock serializes turns of one interview
func (s *InterviewService) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &interviewLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}
