package services

import (
	"context"
	"fmt"
	"strings"

	"deo-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PrayerStore persists a user's prayer list
type PrayerStore interface {
	List(ctx context.Context, userID string) ([]models.Prayer, error)
	Create(ctx context.Context, p *models.Prayer) error
}

// PrayerService handles the personal prayer list
type PrayerService struct {
	store PrayerStore
	coll  *Collection[models.Prayer]
	clock Clock
}

// NewPrayerService creates a new prayer service
func NewPrayerService(store PrayerStore, feed *Feed, clock Clock) *PrayerService {
	return &PrayerService{
		store: store,
		coll:  NewCollection[models.Prayer]("prayers", store, feed),
		clock: clock,
	}
}

// List returns the user's prayers, newest first
func (s *PrayerService) List(ctx context.Context, userID string) ([]models.Prayer, error) {
	return s.coll.Load(ctx, userID)
}

// Subscribe opens a live feed of the user's prayers
func (s *PrayerService) Subscribe(ctx context.Context, userID, sessionID string) (*Subscription, error) {
	return s.coll.Subscribe(ctx, userID, sessionID)
}

// Add appends a prayer. Title and body are required.
func (s *PrayerService) Add(ctx context.Context, userID, title, body string) (*models.Prayer, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and text are required", ErrValidation)
	}

	prayer := &models.Prayer{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		CreatedAt: s.clock.Now(),
	}
	err := s.coll.Write(ctx, userID, func(ctx context.Context) (bool, error) {
		if err := s.store.Create(ctx, prayer); err != nil {
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", userID).Str("prayer_id", prayer.ID).Msg("Prayer added")
	return prayer, nil
}
