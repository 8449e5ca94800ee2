package repository

import (
	"context"
	"fmt"

	"deo-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PrayerRepository handles database operations for a user's prayer list
type PrayerRepository struct {
	db *pgxpool.Pool
}

// NewPrayerRepository creates a new prayer repository
func NewPrayerRepository(db *pgxpool.Pool) *PrayerRepository {
	return &PrayerRepository{db: db}
}

// Create creates a new prayer
func (r *PrayerRepository) Create(ctx context.Context, p *models.Prayer) error {
	query := `
		INSERT INTO prayers (id, user_id, title, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.UserID, p.Title, p.Body, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create prayer: %w", err)
	}
	return nil
}

// List returns the user's prayers, newest first
func (r *PrayerRepository) List(ctx context.Context, userID string) ([]models.Prayer, error) {
	query := `
		SELECT id, user_id, title, body, created_at
		FROM prayers
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prayers: %w", err)
	}
	defer rows.Close()

	prayers := []models.Prayer{}
	for rows.Next() {
		var p models.Prayer
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prayer: %w", err)
		}
		prayers = append(prayers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prayers: %w", err)
	}
	return prayers, nil
}
