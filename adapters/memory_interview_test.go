package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/interviewer/domain/entities"
	"github.com/satriahrh/interviewer/domain/repositories"
)

func TestMemoryInterviewRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInterviewRepository()

	t.Run("CreateAndGetInterview", func(t *testing.T) {
		interview := entities.NewInterview(entities.DefaultLanguage)

		if err := repo.Create(ctx, interview); err != nil {
			t.Fatalf("Failed to create interview: %v", err)
		}

		retrieved, err := repo.GetByID(ctx, interview.ID)
		if err != nil {
			t.Fatalf("Failed to get interview: %v", err)
		}

		if retrieved.Language.Code != "en" {
			t.Errorf("Expected language en, got %s", retrieved.Language.Code)
		}
		if len(retrieved.Messages) != 2 {
			t.Errorf("Expected 2 seeded messages, got %d", len(retrieved.Messages))
		}
	})

	t.Run("DuplicateCreate", func(t *testing.T) {
		interview := entities.NewInterview(entities.DefaultLanguage)
		if err := repo.Create(ctx, interview); err != nil {
			t.Fatalf("Failed to create interview: %v", err)
		}
		if err := repo.Create(ctx, interview); err == nil {
			t.Error("Expected error creating the same interview twice")
		}
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		interview := entities.NewInterview(entities.DefaultLanguage)
		if err := repo.Create(ctx, interview); err != nil {
			t.Fatalf("Failed to create interview: %v", err)
		}

		retrieved, _ := repo.GetByID(ctx, interview.ID)
		retrieved.AddMessage(entities.MessageRoleUser, "not saved")

		again, _ := repo.GetByID(ctx, interview.ID)
		if len(again.Messages) != 2 {
			t.Errorf("Stored interview changed without Update, got %d messages", len(again.Messages))
		}
	})

	t.Run("UpdateInterview", func(t *testing.T) {
		interview := entities.NewInterview(entities.DefaultLanguage)
		if err := repo.Create(ctx, interview); err != nil {
			t.Fatalf("Failed to create interview: %v", err)
		}

		interview.AddMessage(entities.MessageRoleUser, "My name is Jane Doe.")
		if err := repo.Update(ctx, interview); err != nil {
			t.Fatalf("Failed to update interview: %v", err)
		}

		retrieved, _ := repo.GetByID(ctx, interview.ID)
		if len(retrieved.Messages) != 3 {
			t.Errorf("Expected 3 messages, got %d", len(retrieved.Messages))
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, repositories.ErrInterviewNotFound) {
			t.Errorf("Expected ErrInterviewNotFound, got %v", err)
		}

		missing := entities.NewInterview(entities.DefaultLanguage)
		if err := repo.Update(ctx, missing); !errors.Is(err, repositories.ErrInterviewNotFound) {
			t.Errorf("Expected ErrInterviewNotFound on update, got %v", err)
		}
		if err := repo.Delete(ctx, "missing"); !errors.Is(err, repositories.ErrInterviewNotFound) {
			t.Errorf("Expected ErrInterviewNotFound on delete, got %v", err)
		}
	})

	t.Run("DeleteInterview", func(t *testing.T) {
		interview := entities.NewInterview(entities.DefaultLanguage)
		if err := repo.Create(ctx, interview); err != nil {
			t.Fatalf("Failed to create interview: %v", err)
		}
		if err := repo.Delete(ctx, interview.ID); err != nil {
			t.Fatalf("Failed to delete interview: %v", err)
		}
		if _, err := repo.GetByID(ctx, interview.ID); err == nil {
			t.Error("Expected deleted interview to be gone")
		}
	})
}

func TestMemoryInterviewRepository_ListIdleSince(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInterviewRepository()

	fresh := entities.NewInterview(entities.DefaultLanguage)
	stale := entities.NewInterview(entities.DefaultLanguage)
	stale.LastActiveAt = time.Now().Add(-time.Hour)
	ended := entities.NewInterview(entities.DefaultLanguage)
	ended.LastActiveAt = time.Now().Add(-time.Hour)
	ended.End()

	for _, interview := range []*entities.Interview{fresh, stale, ended} {
		if err := repo.Create(ctx, interview); err != nil {
			t.Fatalf("Failed to create interview: %v", err)
		}
	}

	idle, err := repo.ListIdleSince(ctx, time.Now().Add(-entities.DefaultIdleTimeout))
	if err != nil {
		t.Fatalf("Failed to list idle interviews: %v", err)
	}
	if len(idle) != 1 || idle[0].ID != stale.ID {
		t.Errorf("Expected only the stale interview, got %d interviews", len(idle))
	}

	all, _ := repo.List(ctx)
	if len(all) != 3 || repo.Count() != 3 {
		t.Errorf("Expected 3 interviews, got %d", len(all))
	}
}
