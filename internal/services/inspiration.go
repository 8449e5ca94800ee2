package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"deo-backend/internal/models"
	"deo-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BuiltinInspiration is a prayer shipped with the app
type BuiltinInspiration struct {
	Title string
	Body  string
}

// BuiltinInspirations seed every user's inspiration collection
var BuiltinInspirations = []BuiltinInspiration{
	{
		Title: "Short Morning Offering",
		Body:  "Lord, I offer You this day, all my thoughts, words, actions, joys and sufferings, in union with Your Sacred Heart.",
	},
	{
		Title: "Prayer Before Study",
		Body:  "Holy Spirit, guide my mind as I study. Help me to understand, remember, and use this knowledge for Your glory.",
	},
	{
		Title: "Prayer for Patience",
		Body:  "Jesus, meek and humble of heart, make my heart like Yours. Give me patience with others and with myself.",
	},
	{
		Title: "Prayer in Stress",
		Body:  "Lord, You know my worries. I place my work, my studies, and my future in Your hands. Give me peace and trust.",
	},
}

// InspirationStore persists inspirational prayers
type InspirationStore interface {
	List(ctx context.Context, userID string) ([]models.InspirationPrayer, error)
	GetByID(ctx context.Context, userID, id string) (*models.InspirationPrayer, error)
	Create(ctx context.Context, p *models.InspirationPrayer) error
	Update(ctx context.Context, userID, id string, title, body *string) (*models.InspirationPrayer, error)
	SeedOnce(ctx context.Context, userID string, items []models.InspirationPrayer) (bool, error)
}

// InspirationService handles built-in and user-created inspirational prayers
type InspirationService struct {
	store InspirationStore
	coll  *Collection[models.InspirationPrayer]
	share *ShareService
	clock Clock
}

// NewInspirationService creates a new inspiration service.
// share may be nil when sharing is not configured.
func NewInspirationService(store InspirationStore, feed *Feed, share *ShareService, clock Clock) *InspirationService {
	s := &InspirationService{store: store, share: share, clock: clock}
	s.coll = NewCollection[models.InspirationPrayer]("inspirations", store, feed,
		WithSeed[models.InspirationPrayer](s.seed),
	)
	return s
}

// List returns the inspirations, newest first, seeding built-ins on first use
func (s *InspirationService) List(ctx context.Context, userID string) ([]models.InspirationPrayer, error) {
	return s.coll.Load(ctx, userID)
}

// Subscribe opens a live feed of the inspirations
func (s *InspirationService) Subscribe(ctx context.Context, userID, sessionID string) (*Subscription, error) {
	return s.coll.Subscribe(ctx, userID, sessionID)
}

// Add stores a user-created inspiration owned by userID
func (s *InspirationService) Add(ctx context.Context, userID, title, body string) (*models.InspirationPrayer, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" || body == "" {
		return nil, fmt.Errorf("%w: title and text are required", ErrValidation)
	}

	owner := userID
	p := &models.InspirationPrayer{
		ID:            uuid.New().String(),
		UserID:        userID,
		Title:         title,
		Body:          body,
		IsUserCreated: true,
		OwnerID:       &owner,
		CreatedAt:     s.clock.Now(),
	}
	err := s.coll.Write(ctx, userID, func(ctx context.Context) (bool, error) {
		if err := s.store.Create(ctx, p); err != nil {
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits a user-created inspiration. Nil fields are left as they are.
// Built-ins and records owned by another user are refused with ErrNotOwner.
func (s *InspirationService) Update(ctx context.Context, userID, id string, title, body *string) (*models.InspirationPrayer, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	title, err := trimOptional(title, "title")
	if err != nil {
		return nil, err
	}
	body, err = trimOptional(body, "text")
	if err != nil {
		return nil, err
	}

	var updated *models.InspirationPrayer
	err = s.coll.Write(ctx, userID, func(ctx context.Context) (bool, error) {
		current, err := s.store.GetByID(ctx, userID, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, ErrNotFound
			}
			return false, err
		}
		if !current.OwnedBy(userID) {
			log.Warn().Str("user_id", userID).Str("inspiration_id", id).Msg("Refused edit of inspiration not owned by user")
			return false, ErrNotOwner
		}
		if title == nil && body == nil {
			updated = current
			return false, nil
		}

		updated, err = s.store.Update(ctx, userID, id, title, body)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, ErrNotOwner
			}
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Share publishes an inspiration through the share capability
func (s *InspirationService) Share(ctx context.Context, userID, id string) (*ShareResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if s.share == nil {
		return nil, ErrShareUnavailable
	}
	p, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.share.Share(ctx, userID, ShareRequest{Title: p.Title, Message: p.Body})
}

func (s *InspirationService) seed(ctx context.Context, userID string) (bool, error) {
	now := s.clock.Now()
	items := make([]models.InspirationPrayer, len(BuiltinInspirations))
	for i, b := range BuiltinInspirations {
		// Later built-ins get earlier timestamps so newest-first keeps the shipped order.
		items[i] = models.InspirationPrayer{
			ID:        uuid.New().String(),
			UserID:    userID,
			Title:     b.Title,
			Body:      b.Body,
			CreatedAt: now.Add(-time.Duration(i) * time.Millisecond),
		}
	}
	return s.store.SeedOnce(ctx, userID, items)
}

func trimOptional(v *string, field string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil, fmt.Errorf("%w: %s cannot be empty", ErrValidation, field)
	}
	return &t, nil
}
