package usecase

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultCleanupInterval = time.Minute

// InterviewCleanupService ends interviews nobody has answered for a while
type InterviewCleanupService struct {
	interviews *InterviewService
	idle       time.Duration
	interval   time.Duration
	logger     *zap.Logger
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewInterviewCleanupService creates a new cleanup service
func NewInterviewCleanupService(interviews *InterviewService, idle, interval time.Duration, logger *zap.Logger) *InterviewCleanupService {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &InterviewCleanupService{
		interviews: interviews,
		idle:       idle,
		interval:   interval,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *InterviewCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Interview cleanup service started",
		zap.Duration("idle", s.idle),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *InterviewCleanupService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info("Interview cleanup service stopped")
	})
}

func (s *InterviewCleanupService) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup ends idle interviews
func (s *InterviewCleanupService) runCleanup() int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	ended, err := s.interviews.EndIdle(ctx, s.idle)
	if err != nil {
		s.logger.Error("Failed to end idle interviews", zap.Error(err))
	}
	if ended > 0 {
		s.logger.Info("Idle interviews ended", zap.Int("count", ended))
	}
	return ended
}
