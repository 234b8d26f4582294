package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

const tournamentColumns = `id, name, metric, aggregation, limit_policy, status, start_date, end_date,
	prizes, prizes_awarded, participant_count, last_reconciled_at, created_at, updated_at`

// CreateTournament inserts a tournament
func (r *Repository) CreateTournament(ctx context.Context, t domain.Tournament) error {
	prizes, err := encodePrizes(t.Prizes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tournaments (id, name, metric, aggregation, limit_policy, status, start_date, end_date, prizes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		t.ID,
		t.Name,
		string(t.Rule.Metric),
		string(t.Rule.Aggregation),
		string(t.Rule.LimitPolicy),
		string(t.Status),
		nullTime(t.StartDate),
		nullTime(t.EndDate),
		prizes,
		r.now(),
	)
	if err != nil {
		return fmt.Errorf("creating tournament: %w", err)
	}
	return nil
}

// GetTournament retrieves a tournament by ID
func (r *Repository) GetTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("tournament %s: %w", id, domain.ErrTournamentNotFound)
		}
		return nil, fmt.Errorf("getting tournament: %w", err)
	}
	return t, nil
}

// ListTournaments returns the tournaments passing filter, ordered by ID
func (r *Repository) ListTournaments(ctx context.Context, filter domain.TournamentFilter) ([]domain.Tournament, error) {
	query, args := buildTournamentQuery(filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tournaments: %w", err)
	}
	defer rows.Close()

	var out []domain.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tournament: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// UpdateTournamentStatus moves a tournament from one status to the next.
// It reports false without writing when the stored status is not from.
func (r *Repository) UpdateTournamentStatus(ctx context.Context, id string, from, to domain.TournamentStatus) (bool, error) {
	query := `UPDATE tournaments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	result, err := r.pool.Exec(ctx, query, id, string(from), string(to), r.now())
	if err != nil {
		return false, fmt.Errorf("updating tournament status: %w", err)
	}
	if result.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tournaments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking tournament existence: %w", err)
	}
	if !exists {
		return false, fmt.Errorf("tournament %s: %w", id, domain.ErrTournamentNotFound)
	}
	return false, nil
}

// IncrementParticipantCount counts a user once per tournament. The
// processed marker and the counter change in the same transaction.
func (r *Repository) IncrementParticipantCount(ctx context.Context, tournamentID, userID string) (bool, error) {
	var counted bool
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		marker, err := tx.Exec(ctx,
			`INSERT INTO processed_entries (tournament_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			tournamentID, userID,
		)
		if err != nil {
			return fmt.Errorf("recording entry marker: %w", err)
		}
		if marker.RowsAffected() == 0 {
			return nil
		}

		result, err := tx.Exec(ctx,
			`UPDATE tournaments SET participant_count = participant_count + 1 WHERE id = $1`,
			tournamentID,
		)
		if err != nil {
			return fmt.Errorf("incrementing participant count: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
		}
		counted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return counted, nil
}

// AwardPrizes writes the titles and finishes the tournament in one transaction
func (r *Repository) AwardPrizes(ctx context.Context, tournamentID string, titles []domain.AwardedTitle, awardedAt time.Time) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var awarded bool
		err := tx.QueryRow(ctx,
			`SELECT prizes_awarded FROM tournaments WHERE id = $1 FOR UPDATE`,
			tournamentID,
		).Scan(&awarded)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
			}
			return fmt.Errorf("locking tournament: %w", err)
		}
		if awarded {
			return domain.ErrPrizesAlreadyAwarded
		}

		batch := &pgx.Batch{}
		for _, t := range titles {
			batch.Queue(`
				INSERT INTO user_titles (id, user_id, tournament_id, tournament_name, rank, title, description, awarded_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				t.ID, t.UserID, t.TournamentID, t.TournamentName, t.Rank, t.Title, t.Description, t.AwardedAt,
			)
		}
		batch.Queue(
			`UPDATE tournaments SET prizes_awarded = TRUE, status = $2, updated_at = $3 WHERE id = $1`,
			tournamentID, string(domain.StatusFinished), awardedAt,
		)

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("writing prizes: %w", err)
		}
		return nil
	})
}

// buildTournamentQuery renders the list query for filter
func buildTournamentQuery(filter domain.TournamentFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.Metric != "" {
		args = append(args, string(filter.Metric))
		where = append(where, fmt.Sprintf("metric = $%d", len(args)))
	}

	query := `SELECT ` + tournamentColumns + ` FROM tournaments`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	return query + ` ORDER BY id`, args
}

func scanTournament(row pgx.Row) (*domain.Tournament, error) {
	var (
		t              domain.Tournament
		start, end     *time.Time
		prizes         []byte
		lastReconciled *time.Time
	)
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Rule.Metric,
		&t.Rule.Aggregation,
		&t.Rule.LimitPolicy,
		&t.Status,
		&start,
		&end,
		&prizes,
		&t.PrizesAwarded,
		&t.ParticipantCount,
		&lastReconciled,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.StartDate = timeOrZero(start)
	t.EndDate = timeOrZero(end)
	t.LastReconciledAt = lastReconciled
	if t.Prizes, err = decodePrizes(prizes); err != nil {
		return nil, err
	}
	return &t, nil
}

func encodePrizes(prizes []domain.Prize) ([]byte, error) {
	if prizes == nil {
		prizes = []domain.Prize{}
	}
	data, err := json.Marshal(prizes)
	if err != nil {
		return nil, fmt.Errorf("encoding prizes: %w", err)
	}
	return data, nil
}

func decodePrizes(data []byte) ([]domain.Prize, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var prizes []domain.Prize
	if err := json.Unmarshal(data, &prizes); err != nil {
		return nil, fmt.Errorf("decoding prizes: %w", err)
	}
	if len(prizes) == 0 {
		return nil, nil
	}
	return prizes, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
