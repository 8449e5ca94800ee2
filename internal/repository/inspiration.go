package repository

import (
	"context"
	"errors"
	"fmt"

	"deo-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InspirationRepository handles database operations for inspirational prayers
type InspirationRepository struct {
	db *pgxpool.Pool
}

// NewInspirationRepository creates a new inspiration repository
func NewInspirationRepository(db *pgxpool.Pool) *InspirationRepository {
	return &InspirationRepository{db: db}
}

const inspirationColumns = `id, user_id, title, body, is_user_created, owner_id, created_at`

func scanInspiration(row pgx.Row) (*models.InspirationPrayer, error) {
	var p models.InspirationPrayer
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &p.IsUserCreated, &p.OwnerID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a new inspiration
func (r *InspirationRepository) Create(ctx context.Context, p *models.InspirationPrayer) error {
	query := `
		INSERT INTO inspirations (` + inspirationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.UserID, p.Title, p.Body, p.IsUserCreated, p.OwnerID, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create inspiration: %w", err)
	}
	return nil
}

// GetByID retrieves an inspiration within the user's partition
func (r *InspirationRepository) GetByID(ctx context.Context, userID, id string) (*models.InspirationPrayer, error) {
	query := `SELECT ` + inspirationColumns + ` FROM inspirations WHERE id = $1 AND user_id = $2`
	p, err := scanInspiration(r.db.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("inspiration not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get inspiration: %w", err)
	}
	return p, nil
}

// List returns the user's inspirations, newest first
func (r *InspirationRepository) List(ctx context.Context, userID string) ([]models.InspirationPrayer, error) {
	query := `
		SELECT ` + inspirationColumns + `
		FROM inspirations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get inspirations: %w", err)
	}
	defer rows.Close()

	list := []models.InspirationPrayer{}
	for rows.Next() {
		p, err := scanInspiration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspiration: %w", err)
		}
		list = append(list, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inspirations: %w", err)
	}
	return list, nil
}

// Update applies a partial update to a record the user created.
// Built-ins and records owned by someone else are never matched.
func (r *InspirationRepository) Update(ctx context.Context, userID, id string, title, body *string) (*models.InspirationPrayer, error) {
	query := `
		UPDATE inspirations SET
			title = COALESCE($1, title),
			body = COALESCE($2, body)
		WHERE id = $3 AND user_id = $4 AND is_user_created AND owner_id = $4
		RETURNING ` + inspirationColumns
	p, err := scanInspiration(r.db.QueryRow(ctx, query, title, body, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("inspiration not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update inspiration: %w", err)
	}
	return p, nil
}

// SeedOnce writes the built-in prayers into an empty, never-seeded collection
func (r *InspirationRepository) SeedOnce(ctx context.Context, userID string, items []models.InspirationPrayer) (bool, error) {
	scope := fmt.Sprintf("users/%s/inspirations", userID)
	count := `SELECT COUNT(*) FROM inspirations WHERE user_id = $1`

	return seedOnce(ctx, r.db, scope, count, userID, func(tx pgx.Tx) error {
		query := `
			INSERT INTO inspirations (` + inspirationColumns + `)
			VALUES ($1, $2, $3, $4, false, NULL, $5)
		`
		for _, it := range items {
			if _, err := tx.Exec(ctx, query, it.ID, userID, it.Title, it.Body, it.CreatedAt); err != nil {
				return fmt.Errorf("failed to seed inspiration %q: %w", it.Title, err)
			}
		}
		return nil
	})
}
