package adapters

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/satriahrh/interviewer/domain/entities"
	"github.com/satriahrh/interviewer/domain/repositories"
)

// MemoryInterviewRepository is an in-memory implementation of InterviewRepository.
// Interviews live only as long as the process.
type MemoryInterviewRepository struct {
	mu         sync.RWMutex
	interviews map[string]*entities.Interview
}

// NewMemoryInterviewRepository creates a new in-memory interview repository
func NewMemoryInterviewRepository() *MemoryInterviewRepository {
	return &MemoryInterviewRepository{
		interviews: make(map[string]*entities.Interview),
	}
}

// Create implements InterviewRepository interface
func (m *MemoryInterviewRepository) Create(ctx context.Context, interview *entities.Interview) error {
	if interview == nil {
		return errors.New("interview cannot be nil")
	}

	// Generate ID if not provided
	if interview.ID == "" {
		interview.ID = uuid.NewString()
	}

	if err := interview.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.interviews[interview.ID]; exists {
		return errors.New("interview with this ID already exists")
	}

	m.interviews[interview.ID] = interview.Clone()
	return nil
}

// GetByID implements InterviewRepository interface
func (m *MemoryInterviewRepository) GetByID(ctx context.Context, id string) (*entities.Interview, error) {
	if id == "" {
		return nil, errors.New("interview ID cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	interview, exists := m.interviews[id]
	if !exists {
		return nil, repositories.ErrInterviewNotFound
	}

	// Return a copy to prevent external modifications
	return interview.Clone(), nil
}

// Update implements InterviewRepository interface
func (m *MemoryInterviewRepository) Update(ctx context.Context, interview *entities.Interview) error {
	if interview == nil {
		return errors.New("interview cannot be nil")
	}

	if err := interview.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.interviews[interview.ID]
	if !exists {
		return repositories.ErrInterviewNotFound
	}

	stored := interview.Clone()
	stored.CreatedAt = existing.CreatedAt // Preserve original creation time
	m.interviews[interview.ID] = stored
	return nil
}

// Delete implements InterviewRepository interface
func (m *MemoryInterviewRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("interview ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.interviews[id]; !exists {
		return repositories.ErrInterviewNotFound
	}
	delete(m.interviews, id)
	return nil
}

// List returns every interview, oldest first
func (m *MemoryInterviewRepository) List(ctx context.Context) ([]*entities.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Interview, 0, len(m.interviews))
	for _, interview := range m.interviews {
		result = append(result, interview.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ListIdleSince implements InterviewRepository interface
func (m *MemoryInterviewRepository) ListIdleSince(ctx context.Context, cutoff time.Time) ([]*entities.Interview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*entities.Interview, 0)
	for _, interview := range m.interviews {
		if interview.IsActive() && interview.IsIdleSince(cutoff) {
			result = append(result, interview.Clone())
		}
	}
	return result, nil
}

// Count returns the number of stored interviews
func (m *MemoryInterviewRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.interviews)
}
