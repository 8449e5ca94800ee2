package services

import (
	"context"
	"errors"
	"fmt"

	"deo-backend/internal/models"
	"deo-backend/internal/repository"

	"github.com/google/uuid"
)

// DefaultChecklist is written into a user's empty checklist, in this order
var DefaultChecklist = []string{
	"Morning Prayer",
	"Rosary",
	"Examination of Conscience",
	"Night Prayer",
}

// ChecklistStore persists checklist items
type ChecklistStore interface {
	List(ctx context.Context, userID string) ([]models.ChecklistItem, error)
	SeedOnce(ctx context.Context, userID string, items []models.ChecklistItem) (bool, error)
	SetDone(ctx context.Context, userID, itemID string, done bool) (*models.ChecklistItem, error)
}

// ChecklistService handles the daily prayer checklist
type ChecklistService struct {
	store ChecklistStore
	coll  *Collection[models.ChecklistItem]
	clock Clock
}

// ChecklistView is the checklist with its completion summary
type ChecklistView struct {
	Items   []models.ChecklistItem  `json:"items"`
	Summary models.ChecklistSummary `json:"summary"`
}

// NewChecklistService creates a new checklist service
func NewChecklistService(store ChecklistStore, feed *Feed, clock Clock) *ChecklistService {
	s := &ChecklistService{store: store, clock: clock}
	s.coll = NewCollection[models.ChecklistItem]("checklist", store, feed,
		WithSeed[models.ChecklistItem](s.seed),
		WithSummary(func(items []models.ChecklistItem) any { return Summarize(items) }),
	)
	return s
}

// Summarize counts completed items
func Summarize(items []models.ChecklistItem) models.ChecklistSummary {
	sum := models.ChecklistSummary{Total: len(items)}
	for _, it := range items {
		if it.Done {
			sum.Completed++
		}
	}
	return sum
}

// List returns the checklist, seeding it on first use
func (s *ChecklistService) List(ctx context.Context, userID string) (*ChecklistView, error) {
	items, err := s.coll.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ChecklistView{Items: items, Summary: Summarize(items)}, nil
}

// Subscribe opens a live feed of the checklist
func (s *ChecklistService) Subscribe(ctx context.Context, userID, sessionID string) (*Subscription, error) {
	return s.coll.Subscribe(ctx, userID, sessionID)
}

// Toggle writes the negation of current. Subscribers see the change through
// the published snapshot.
func (s *ChecklistService) Toggle(ctx context.Context, userID, itemID string, current bool) (*models.ChecklistItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrValidation)
	}

	var updated *models.ChecklistItem
	err := s.coll.Write(ctx, userID, func(ctx context.Context) (bool, error) {
		it, err := s.store.SetDone(ctx, userID, itemID, !current)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, ErrNotFound
			}
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		updated = it
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *ChecklistService) seed(ctx context.Context, userID string) (bool, error) {
	now := s.clock.Now()
	items := make([]models.ChecklistItem, len(DefaultChecklist))
	for i, label := range DefaultChecklist {
		items[i] = models.ChecklistItem{
			ID:        uuid.New().String(),
			UserID:    userID,
			Label:     label,
			Position:  i,
			CreatedAt: now,
		}
	}
	return s.store.SeedOnce(ctx, userID, items)
}
