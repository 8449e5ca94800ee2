package repository

import (
	"context"
	"fmt"
	"time"

	"deo-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StreakRepository handles database operations for streak state
type StreakRepository struct {
	db *pgxpool.Pool
}

// NewStreakRepository creates a new streak repository
func NewStreakRepository(db *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{db: db}
}

// Get returns the user's streak state, creating the zero state on first read
func (r *StreakRepository) Get(ctx context.Context, userID string) (*models.StreakState, error) {
	query := `
		WITH created AS (
			INSERT INTO streaks (user_id, streak_count, last_logged_date, updated_at)
			VALUES ($1, 0, NULL, now())
			ON CONFLICT (user_id) DO NOTHING
			RETURNING user_id, streak_count, last_logged_date, updated_at
		)
		SELECT user_id, streak_count, last_logged_date, updated_at FROM created
		UNION ALL
		SELECT user_id, streak_count, last_logged_date, updated_at FROM streaks WHERE user_id = $1
		LIMIT 1
	`
	var s models.StreakState
	err := r.db.QueryRow(ctx, query, userID).Scan(&s.UserID, &s.StreakCount, &s.LastLoggedDate, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	return &s, nil
}

// Save persists a streak advance. The stored last_logged_date never moves
// backwards.
func (r *StreakRepository) Save(ctx context.Context, s *models.StreakState) (*models.StreakState, error) {
	query := `
		INSERT INTO streaks (user_id, streak_count, last_logged_date, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			streak_count = EXCLUDED.streak_count,
			last_logged_date = GREATEST(streaks.last_logged_date, EXCLUDED.last_logged_date),
			updated_at = EXCLUDED.updated_at
		RETURNING user_id, streak_count, last_logged_date, updated_at
	`
	var saved models.StreakState
	err := r.db.QueryRow(ctx, query, s.UserID, s.StreakCount, s.LastLoggedDate, s.UpdatedAt).Scan(
		&saved.UserID, &saved.StreakCount, &saved.LastLoggedDate, &saved.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save streak: %w", err)
	}
	return &saved, nil
}

// ListAtRisk returns users with a push token whose last log was on day
func (r *StreakRepository) ListAtRisk(ctx context.Context, day time.Time) ([]models.ReminderTarget, error) {
	query := `
		SELECT u.id, u.push_token, s.streak_count
		FROM streaks s
		JOIN users u ON u.id = s.user_id
		WHERE s.last_logged_date = $1
		  AND s.streak_count > 0
		  AND u.push_token IS NOT NULL AND u.push_token <> ''
	`
	rows, err := r.db.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list at-risk streaks: %w", err)
	}
	defer rows.Close()

	var targets []models.ReminderTarget
	for rows.Next() {
		var t models.ReminderTarget
		if err := rows.Scan(&t.UserID, &t.PushToken, &t.StreakCount); err != nil {
			return nil, fmt.Errorf("failed to scan reminder target: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminder targets: %w", err)
	}
	return targets, nil
}
