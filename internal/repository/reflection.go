package repository

import (
	"context"
	"fmt"

	"deo-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReflectionRepository handles database operations for journal entries
type ReflectionRepository struct {
	db *pgxpool.Pool
}

// NewReflectionRepository creates a new reflection repository
func NewReflectionRepository(db *pgxpool.Pool) *ReflectionRepository {
	return &ReflectionRepository{db: db}
}

// Create appends a reflection entry
func (r *ReflectionRepository) Create(ctx context.Context, e *models.ReflectionEntry) error {
	query := `
		INSERT INTO reflections (id, user_id, body, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.Exec(ctx, query, e.ID, e.UserID, e.Body, e.CreatedAt); err != nil {
		return fmt.Errorf("failed to create reflection: %w", err)
	}
	return nil
}

// List returns the user's reflections, newest first
func (r *ReflectionRepository) List(ctx context.Context, userID string) ([]models.ReflectionEntry, error) {
	query := `
		SELECT id, user_id, body, created_at
		FROM reflections
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reflections: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.ReflectionEntry])
	if err != nil {
		return nil, fmt.Errorf("failed to scan reflections: %w", err)
	}
	if entries == nil {
		entries = []models.ReflectionEntry{}
	}
	return entries, nil
}
