package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	appconfig "deo-backend/internal/config"
	"deo-backend/internal/models"
	"deo-backend/internal/streak"

	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// Notifier delivers a push notification to one device
type Notifier interface {
	Notify(ctx context.Context, deviceToken, title, body string) error
}

// ReminderStore finds users whose streak ends if they skip today
type ReminderStore interface {
	ListAtRisk(ctx context.Context, day time.Time) ([]models.ReminderTarget, error)
}

// ReminderService pushes a reminder to users who logged yesterday but not yet today
type ReminderService struct {
	store    ReminderStore
	notifier Notifier
	clock    Clock
	loc      *time.Location
	interval time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
}

// NewReminderService creates a reminder service that checks every interval
func NewReminderService(store ReminderStore, notifier Notifier, clock Clock, loc *time.Location, interval time.Duration) *ReminderService {
	return &ReminderService{
		store:    store,
		notifier: notifier,
		clock:    clock,
		loc:      loc,
		interval: interval,
		sent:     make(map[string]time.Time),
	}
}

// Run checks for at-risk streaks until ctx is done
func (s *ReminderService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("Streak reminders started")
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Streak reminder run failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Streak reminders stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce sends at most one reminder per user per day and returns how many
// were delivered. Individual push failures are logged and skipped.
func (s *ReminderService) RunOnce(ctx context.Context) (int, error) {
	today := streak.Day(s.clock.Now().In(s.loc))
	yesterday := civilDate(today.AddDate(0, 0, -1))

	targets, err := s.store.ListAtRisk(ctx, yesterday)
	if err != nil {
		return 0, fmt.Errorf("failed to list reminder targets: %w", err)
	}

	delivered := 0
	for _, t := range targets {
		if s.alreadySent(t.UserID, today) {
			continue
		}
		body := fmt.Sprintf("Keep your %d-day prayer streak going. Check in today.", t.StreakCount)
		if err := s.notifier.Notify(ctx, t.PushToken, "Deo", body); err != nil {
			log.Error().Err(err).Str("user_id", t.UserID).Msg("Failed to send streak reminder")
			continue
		}
		s.markSent(t.UserID, today)
		delivered++
	}

	if delivered > 0 {
		log.Info().Int("delivered", delivered).Msg("Streak reminders sent")
	}
	return delivered, nil
}

func (s *ReminderService) alreadySent(userID string, day time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.sent[userID]
	return ok && last.Equal(day)
}

func (s *ReminderService) markSent(userID string, day time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, d := range s.sent {
		if d.Before(day) {
			delete(s.sent, id)
		}
	}
	s.sent[userID] = day
}

// APNsNotifier sends reminders through Apple Push Notification service
type APNsNotifier struct {
	client *apns2.Client
	topic  string
}

// NewAPNsNotifier creates a token-authenticated APNs client
func NewAPNsNotifier(cfg appconfig.APNsConfig) (*APNsNotifier, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsNotifier{client: client, topic: cfg.Topic}, nil
}

// Notify pushes an alert to deviceToken
func (n *APNsNotifier) Notify(ctx context.Context, deviceToken, title, body string) error {
	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       n.topic,
		Payload:     payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default"),
		Priority:    apns2.PriorityLow,
	}

	res, err := n.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !res.Sent() {
		return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
	}
	return nil
}
