package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// SaveUser inserts or replaces a user profile
func (r *Repository) SaveUser(ctx context.Context, u domain.UserProfile) error {
	query := `
		INSERT INTO users (id, display_name, photo_url, total_catches, max_size, angler_rank, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id)
		DO UPDATE SET display_name = $2, photo_url = $3, updated_at = $7
	`
	rank := u.Stats.Rank
	if rank == "" {
		rank = domain.AnglerBeginner
	}
	_, err := r.pool.Exec(ctx, query,
		u.ID, u.DisplayName, u.PhotoURL, u.Stats.TotalCatches, u.Stats.MaxSize, string(rank), r.now(),
	)
	if err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}

// GetUserProfile retrieves a user profile
func (r *Repository) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	query := `
		SELECT id, display_name, photo_url, total_catches, max_size, angler_rank, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var u domain.UserProfile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&u.ID,
		&u.DisplayName,
		&u.PhotoURL,
		&u.Stats.TotalCatches,
		&u.Stats.MaxSize,
		&u.Stats.Rank,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &u, nil
}

// RecordCatch applies a new post to the author's stats once per post ID.
// The user row is locked while the stats change.
func (r *Repository) RecordCatch(ctx context.Context, evt domain.PostCreatedEvent, apply func(domain.AnglerStats) domain.AnglerStats) (*domain.AnglerStats, bool, error) {
	var (
		stats   domain.AnglerStats
		applied bool
	)

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`SELECT total_catches, max_size, angler_rank FROM users WHERE id = $1 FOR UPDATE`,
			evt.UserID,
		).Scan(&stats.TotalCatches, &stats.MaxSize, &stats.Rank)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("user %s: %w", evt.UserID, domain.ErrUserNotFound)
			}
			return fmt.Errorf("locking user: %w", err)
		}

		marker, err := tx.Exec(ctx,
			`INSERT INTO processed_posts (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			evt.PostID, evt.UserID,
		)
		if err != nil {
			return fmt.Errorf("recording post marker: %w", err)
		}
		if marker.RowsAffected() == 0 {
			return nil
		}

		stats = apply(stats)
		_, err = tx.Exec(ctx,
			`UPDATE users SET total_catches = $2, max_size = $3, angler_rank = $4, updated_at = $5 WHERE id = $1`,
			evt.UserID, stats.TotalCatches, stats.MaxSize, string(stats.Rank), r.now(),
		)
		if err != nil {
			return fmt.Errorf("updating angler stats: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &stats, applied, nil
}
