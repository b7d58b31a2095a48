package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/satriahrh/interviewer/domain/entities"
)

// ErrInterviewNotFound is returned when no interview has the requested id
var ErrInterviewNotFound = errors.New("interview not found")

// InterviewRepository defines data access methods for interviews
type InterviewRepository interface {
	Create(ctx context.Context, interview *entities.Interview) error
	GetByID(ctx context.Context, id string) (*entities.Interview, error)
	Update(ctx context.Context, interview *entities.Interview) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entities.Interview, error)
	// ListIdleSince returns active interviews whose last activity is before cutoff
	ListIdleSince(ctx context.Context, cutoff time.Time) ([]*entities.Interview, error)
}
