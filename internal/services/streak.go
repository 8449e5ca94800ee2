package services

import (
	"context"
	"fmt"
	"time"

	"deo-backend/internal/models"
	"deo-backend/internal/streak"

	"github.com/rs/zerolog/log"
)

// StreakStore persists per-user streak state
type StreakStore interface {
	Get(ctx context.Context, userID string) (*models.StreakState, error)
	Save(ctx context.Context, s *models.StreakState) (*models.StreakState, error)
}

// StreakService advances and publishes the daily streak
type StreakService struct {
	store StreakStore
	coll  *Collection[models.StreakState]
	clock Clock
	loc   *time.Location
}

// NewStreakService creates a streak service computing "today" in loc
func NewStreakService(store StreakStore, feed *Feed, clock Clock, loc *time.Location) *StreakService {
	return &StreakService{
		store: store,
		coll:  NewCollection[models.StreakState]("streak", streakLister{store}, feed),
		clock: clock,
		loc:   loc,
	}
}

// StreakLog is the outcome of a streak tap
type StreakLog struct {
	State  models.StreakState `json:"state"`
	Result streak.Result      `json:"result"`
}

// Get returns the user's streak, creating the zero state on first read
func (s *StreakService) Get(ctx context.Context, userID string) (*models.StreakState, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	state, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read streak: %w", err)
	}
	return state, nil
}

// Today returns the current calendar day in the service's time zone
func (s *StreakService) Today() time.Time {
	return streak.Day(s.clock.Now().In(s.loc))
}

// maxClientSkewDays bounds how far a client's date may sit from the server's
// day; one day covers every UTC offset.
const maxClientSkewDays = 1

// Log records a streak tap for today. A nil today uses the service clock.
// A client date more than a day away from the server's day is rejected.
// The returned state is what the caller should show right away; the stored
// state is published to subscribers once saved.
func (s *StreakService) Log(ctx context.Context, userID string, today *time.Time) (*StreakLog, error) {
	day := s.Today()
	if today != nil {
		client := streak.Day(*today)
		if diff := streak.DaysBetween(day, client); diff > maxClientSkewDays || diff < -maxClientSkewDays {
			return nil, fmt.Errorf("%w: today %s is %d days from %s", ErrValidation,
				client.Format(time.DateOnly), diff, day.Format(time.DateOnly))
		}
		day = client
	}

	var out *StreakLog
	err := s.coll.Write(ctx, userID, func(ctx context.Context) (bool, error) {
		state, err := s.store.Get(ctx, userID)
		if err != nil {
			return false, fmt.Errorf("failed to read streak: %w", err)
		}

		res := streak.Advance(state.StreakCount, state.LastLoggedDate, day)
		if !res.Updated {
			out = &StreakLog{State: *state, Result: res}
			return false, nil
		}
		if res.DiffDays < 0 {
			log.Warn().
				Str("user_id", userID).
				Int("diff_days", res.DiffDays).
				Msg("Last streak log is after today, resetting streak")
		}

		logged := civilDate(day)
		if state.LastLoggedDate != nil && state.LastLoggedDate.After(logged) {
			logged = *state.LastLoggedDate
		}
		next := models.StreakState{
			UserID:         userID,
			StreakCount:    res.NewStreak,
			LastLoggedDate: &logged,
			UpdatedAt:      s.clock.Now(),
		}
		if _, err := s.store.Save(ctx, &next); err != nil {
			return false, fmt.Errorf("%w: %w", ErrWriteFailed, err)
		}

		log.Info().
			Str("user_id", userID).
			Int("streak", res.NewStreak).
			Str("reason", string(res.Reason)).
			Msg("Streak logged")

		out = &StreakLog{State: next, Result: res}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Subscribe opens a live feed of the user's streak state
func (s *StreakService) Subscribe(ctx context.Context, userID, sessionID string) (*Subscription, error) {
	return s.coll.Subscribe(ctx, userID, sessionID)
}

type streakLister struct {
	store StreakStore
}

func (l streakLister) List(ctx context.Context, userID string) ([]models.StreakState, error) {
	state, err := l.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return []models.StreakState{*state}, nil
}
