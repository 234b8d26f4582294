package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// ListRankingEntries returns every ranking entry of a tournament, ordered by user ID
func (r *Repository) ListRankingEntries(ctx context.Context, tournamentID string) ([]domain.RankingEntry, error) {
	query := `
		SELECT tournament_id, user_id, author_name, author_photo_url, score, rank, achieved_at, updated_at
		FROM ranking_entries
		WHERE tournament_id = $1
		ORDER BY user_id
	`
	rows, err := r.pool.Query(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing ranking entries: %w", err)
	}
	defer rows.Close()

	var out []domain.RankingEntry
	for rows.Next() {
		var (
			e        domain.RankingEntry
			achieved *time.Time
		)
		err := rows.Scan(
			&e.TournamentID,
			&e.UserID,
			&e.Author.Name,
			&e.Author.PhotoURL,
			&e.Score,
			&e.Rank,
			&achieved,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning ranking entry: %w", err)
		}
		e.AchievedAt = timeOrZero(achieved)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetParticipationEntry retrieves a user's participation entry
func (r *Repository) GetParticipationEntry(ctx context.Context, tournamentID, userID string) (*domain.ParticipationEntry, error) {
	query := `
		SELECT tournament_id, user_id, author_name, author_photo_url, current_score, current_rank,
			submission_count, best_submission_id, participated_at, updated_at
		FROM participation_entries
		WHERE tournament_id = $1 AND user_id = $2
	`
	var e domain.ParticipationEntry
	err := r.pool.QueryRow(ctx, query, tournamentID, userID).Scan(
		&e.TournamentID,
		&e.UserID,
		&e.Author.Name,
		&e.Author.PhotoURL,
		&e.CurrentScore,
		&e.CurrentRank,
		&e.SubmissionCount,
		&e.BestSubmissionID,
		&e.ParticipatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("participant %s: %w", userID, domain.ErrEntryNotFound)
		}
		return nil, fmt.Errorf("getting participation entry: %w", err)
	}
	return &e, nil
}

// UpsertScore writes the score to both entry tables in one transaction.
// Ranks are left for the next reorder.
func (r *Repository) UpsertScore(ctx context.Context, u domain.ScoreUpdate) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO ranking_entries (tournament_id, user_id, author_name, author_photo_url, score, achieved_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tournament_id, user_id)
			DO UPDATE SET author_name = $3, author_photo_url = $4, score = $5, achieved_at = $6, updated_at = $7`,
			u.TournamentID, u.UserID, u.Author.Name, u.Author.PhotoURL, u.Score, nullTime(u.AchievedAt), u.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting ranking entry: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO participation_entries (tournament_id, user_id, author_name, author_photo_url, current_score,
				submission_count, best_submission_id, participated_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			ON CONFLICT (tournament_id, user_id)
			DO UPDATE SET author_name = $3, author_photo_url = $4, current_score = $5,
				submission_count = $6, best_submission_id = $7, updated_at = $8`,
			u.TournamentID, u.UserID, u.Author.Name, u.Author.PhotoURL, u.Score,
			u.SubmissionCount, u.BestSubmissionID, u.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting participation entry: %w", err)
		}
		return nil
	})
}

// ApplyRanks writes every rank to both entry tables and stamps the
// tournament, all in one transaction.
func (r *Repository) ApplyRanks(ctx context.Context, tournamentID string, ranks []domain.RankAssignment, reconciledAt time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE tournaments SET last_reconciled_at = $2 WHERE id = $1`,
			tournamentID, reconciledAt,
		)
		if err != nil {
			return fmt.Errorf("stamping tournament: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
		}

		if len(ranks) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, ra := range ranks {
			batch.Queue(
				`UPDATE ranking_entries SET rank = $3, updated_at = $4 WHERE tournament_id = $1 AND user_id = $2`,
				tournamentID, ra.UserID, ra.Rank, reconciledAt,
			)
			batch.Queue(`
				INSERT INTO participation_entries (tournament_id, user_id, current_rank, participated_at, updated_at)
				VALUES ($1, $2, $3, $4, $4)
				ON CONFLICT (tournament_id, user_id)
				DO UPDATE SET current_rank = $3, updated_at = $4`,
				tournamentID, ra.UserID, ra.Rank, reconciledAt,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing ranks: %w", err)
		}

		r.logger.Debug("applied ranks",
			"tournament_id", tournamentID,
			"entries", len(ranks),
		)
		return nil
	})
}
