package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deo-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	db *pgxpool.Pool
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, email, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, s.ID, s.UserID, s.Email, s.CreatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by ID, revoked or not
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, email, created_at, revoked_at
		FROM sessions
		WHERE id = $1
	`
	var s models.Session
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.Email, &s.CreatedAt, &s.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

// Revoke marks a live session as ended. Revoking twice is a no-op.
func (r *SessionRepository) Revoke(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`
	result, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}
