package repository

import (
	"context"
	"errors"
	"fmt"

	"deo-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChecklistRepository handles database operations for checklist items
type ChecklistRepository struct {
	db *pgxpool.Pool
}

// NewChecklistRepository creates a new checklist repository
func NewChecklistRepository(db *pgxpool.Pool) *ChecklistRepository {
	return &ChecklistRepository{db: db}
}

// List returns the user's checklist in seed order
func (r *ChecklistRepository) List(ctx context.Context, userID string) ([]models.ChecklistItem, error) {
	query := `
		SELECT id, user_id, label, done, position, created_at
		FROM checklist_items
		WHERE user_id = $1
		ORDER BY position, created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist: %w", err)
	}

	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[models.ChecklistItem])
	if err != nil {
		return nil, fmt.Errorf("failed to scan checklist: %w", err)
	}
	if items == nil {
		items = []models.ChecklistItem{}
	}
	return items, nil
}

// SeedOnce writes items into an empty, never-seeded checklist.
// It reports whether anything was written.
func (r *ChecklistRepository) SeedOnce(ctx context.Context, userID string, items []models.ChecklistItem) (bool, error) {
	scope := fmt.Sprintf("users/%s/checklist", userID)
	count := `SELECT COUNT(*) FROM checklist_items WHERE user_id = $1`

	return seedOnce(ctx, r.db, scope, count, userID, func(tx pgx.Tx) error {
		query := `
			INSERT INTO checklist_items (id, user_id, label, done, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, it := range items {
			if _, err := tx.Exec(ctx, query, it.ID, userID, it.Label, it.Done, it.Position, it.CreatedAt); err != nil {
				return fmt.Errorf("failed to seed checklist item %q: %w", it.Label, err)
			}
		}
		return nil
	})
}

// SetDone sets an item's done flag within the user's partition
func (r *ChecklistRepository) SetDone(ctx context.Context, userID, itemID string, done bool) (*models.ChecklistItem, error) {
	query := `
		UPDATE checklist_items SET done = $1
		WHERE id = $2 AND user_id = $3
		RETURNING id, user_id, label, done, position, created_at
	`
	var it models.ChecklistItem
	err := r.db.QueryRow(ctx, query, done, itemID, userID).Scan(
		&it.ID, &it.UserID, &it.Label, &it.Done, &it.Position, &it.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("checklist item not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update checklist item: %w", err)
	}
	return &it, nil
}
