package models

import "time"

// User represents a registered account and its profile document
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	PushToken    *string   `json:"push_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session represents a signed-in session of a user
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// StreakState is the per-user daily streak counter
type StreakState struct {
	UserID         string     `json:"user_id"`
	StreakCount    int        `json:"streak_count"`
	LastLoggedDate *time.Time `json:"last_logged_date,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Prayer is a user-authored prayer entry
type Prayer struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// ChecklistItem is a recurring daily prayer task
type ChecklistItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Label     string    `json:"label"`
	Done      bool      `json:"done"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// ChecklistSummary counts completed checklist items
type ChecklistSummary struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// ReflectionEntry is an append-only journal entry
type ReflectionEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// InspirationPrayer is a built-in or user-created inspirational prayer
type InspirationPrayer struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	IsUserCreated bool      `json:"is_user_created"`
	OwnerID       *string   `json:"owner_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// OwnedBy reports whether userID may edit the inspiration
func (p *InspirationPrayer) OwnedBy(userID string) bool {
	return p.IsUserCreated && p.OwnerID != nil && *p.OwnerID == userID
}

// ReminderTarget is a user whose streak is at risk and who can receive a push
type ReminderTarget struct {
	UserID      string `json:"user_id"`
	PushToken   string `json:"push_token"`
	StreakCount int    `json:"streak_count"`
}
