package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

const submissionColumns = `id, tournament_id, user_id, status, judged_size, judged_count, like_count,
	author_name, author_photo_url, submitted_at, updated_at`

// SaveSubmission inserts or replaces a submission
func (r *Repository) SaveSubmission(ctx context.Context, s domain.Submission) error {
	query := `
		INSERT INTO submissions (` + submissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tournament_id, id)
		DO UPDATE SET status = $4, judged_size = $5, judged_count = $6, like_count = $7,
			author_name = $8, author_photo_url = $9, updated_at = $11
	`
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}
	submittedAt := s.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = updatedAt
	}

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.TournamentID,
		s.UserID,
		string(s.Status),
		s.JudgedSize,
		s.JudgedCount,
		s.LikeCount,
		s.Author.Name,
		s.Author.PhotoURL,
		submittedAt,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving submission: %w", err)
	}
	return nil
}

// GetSubmission retrieves one submission
func (r *Repository) GetSubmission(ctx context.Context, tournamentID, submissionID string) (*domain.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE tournament_id = $1 AND id = $2`

	s, err := scanSubmission(r.pool.QueryRow(ctx, query, tournamentID, submissionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("submission %s: %w", submissionID, domain.ErrSubmissionNotFound)
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}
	return s, nil
}

// ListSubmissions returns a tournament's submissions passing filter, ordered by ID
func (r *Repository) ListSubmissions(ctx context.Context, tournamentID string, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	query, args := buildSubmissionQuery(tournamentID, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// SetSubmissionStatus sets the status of several submissions in one
// transaction. Nothing is written unless every submission exists.
func (r *Repository) SetSubmissionStatus(ctx context.Context, tournamentID string, ids []string, status domain.SubmissionStatus) error {
	if len(ids) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE submissions SET status = $3, updated_at = $4 WHERE tournament_id = $1 AND id = ANY($2)`,
			tournamentID, ids, string(status), r.now(),
		)
		if err != nil {
			return fmt.Errorf("updating submission status: %w", err)
		}
		if result.RowsAffected() != int64(len(ids)) {
			return fmt.Errorf("updated %d of %d submissions: %w", result.RowsAffected(), len(ids), domain.ErrSubmissionNotFound)
		}
		return nil
	})
}

// buildSubmissionQuery renders the list query for filter
func buildSubmissionQuery(tournamentID string, filter domain.SubmissionFilter) (string, []any) {
	where := []string{"tournament_id = $1"}
	args := []any{tournamentID}

	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	return query, args
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	var s domain.Submission
	err := row.Scan(
		&s.ID,
		&s.TournamentID,
		&s.UserID,
		&s.Status,
		&s.JudgedSize,
		&s.JudgedCount,
		&s.LikeCount,
		&s.Author.Name,
		&s.Author.PhotoURL,
		&s.SubmittedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
