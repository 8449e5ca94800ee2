package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// seedOnce runs insert inside a transaction that first claims the scope's
// seed marker. A scope that already has a marker, or already has rows, is
// left alone. Concurrent callers serialize on the marker's primary key, so
// at most one of them writes the defaults.
func seedOnce(ctx context.Context, db *pgxpool.Pool, scope, countQuery, userID string, insert func(tx pgx.Tx) error) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `INSERT INTO seed_markers (scope) VALUES ($1) ON CONFLICT (scope) DO NOTHING`, scope)
	if err != nil {
		return false, fmt.Errorf("failed to claim seed marker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	var existing int
	if err := tx.QueryRow(ctx, countQuery, userID).Scan(&existing); err != nil {
		return false, fmt.Errorf("failed to count %s: %w", scope, err)
	}

	seeded := false
	if existing == 0 {
		if err := insert(tx); err != nil {
			return false, err
		}
		seeded = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit seed: %w", err)
	}
	return seeded, nil
}
