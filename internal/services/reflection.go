package services

import (
	"context"
	"fmt"
	"strings"

	"deo-backend/internal/models"

	"github.com/google/uuid"
)

// ReflectionStore persists journal entries
type ReflectionStore interface {
	List(ctx context.Context, userID string) ([]models.ReflectionEntry, error)
	Create(ctx context.Context, e *models.ReflectionEntry) error
}

// ReflectionService handles the reflection journal
type ReflectionService struct {
	store ReflectionStore
	coll  *Collection[models.ReflectionEntry]
	clock Clock
}

// NewReflectionService creates a new reflection service
func NewReflectionService(store ReflectionStore, feed *Feed, clock Clock) *ReflectionService {
	return &ReflectionService{
		store: store,
		coll:  NewCollection[models.ReflectionEntry]("reflections", store, feed),
		clock: clock,
	}
}

// List returns the journal, newest first
func (s *ReflectionService) List(ctx context.Context, userID string) ([]models.ReflectionEntry, error) {
	return s.coll.Load(ctx, userID)
}

// Subscribe opens a live feed of the journal
func (s *ReflectionService) Subscribe(ctx context.Context, userID, sessionID string) (*Subscription, error) {
	return s.coll.Subscribe(ctx, userID, sessionID)
}

// Add appends a journal entry
func (s *ReflectionService) Add(ctx context.Context, userID, body string) (*models.ReflectionEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: reflection text is required", ErrValidation)
	}

	entry := &models.ReflectionEntry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Body:      body,
		CreatedAt: s.clock.Now(),
	}
	err := s.coll.Write(ctx, userID, func(ctx context.Context) (bool, error) {
		if err := s.store.Create(ctx, entry); err != nil {
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
