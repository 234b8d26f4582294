package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matusita0314/eging-map-app/internal/config"
)

// Repository is the PostgreSQL document store
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Ping checks the connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS tournaments (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		metric VARCHAR(20) NOT NULL,
		aggregation VARCHAR(10) NOT NULL DEFAULT '',
		limit_policy VARCHAR(32) NOT NULL DEFAULT 'unrestricted',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		start_date TIMESTAMPTZ,
		end_date TIMESTAMPTZ,
		prizes JSONB NOT NULL DEFAULT '[]',
		prizes_awarded BOOLEAN NOT NULL DEFAULT FALSE,
		participant_count BIGINT NOT NULL DEFAULT 0,
		last_reconciled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id VARCHAR(128) PRIMARY KEY,
		display_name VARCHAR(255) NOT NULL DEFAULT '',
		photo_url TEXT NOT NULL DEFAULT '',
		total_catches INT NOT NULL DEFAULT 0,
		max_size DOUBLE PRECISION NOT NULL DEFAULT 0,
		angler_rank VARCHAR(20) NOT NULL DEFAULT 'beginner',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS submissions (
		tournament_id VARCHAR(64) NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		id VARCHAR(64) NOT NULL,
		user_id VARCHAR(128) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		judged_size DOUBLE PRECISION NOT NULL DEFAULT 0,
		judged_count INT NOT NULL DEFAULT 0,
		like_count INT NOT NULL DEFAULT 0,
		author_name VARCHAR(255) NOT NULL DEFAULT '',
		author_photo_url TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (tournament_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS ranking_entries (
		tournament_id VARCHAR(64) NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		user_id VARCHAR(128) NOT NULL,
		author_name VARCHAR(255) NOT NULL DEFAULT '',
		author_photo_url TEXT NOT NULL DEFAULT '',
		score DOUBLE PRECISION NOT NULL DEFAULT 0,
		rank INT,
		achieved_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (tournament_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS participation_entries (
		tournament_id VARCHAR(64) NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
		user_id VARCHAR(128) NOT NULL,
		author_name VARCHAR(255) NOT NULL DEFAULT '',
		author_photo_url TEXT NOT NULL DEFAULT '',
		current_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		current_rank INT,
		submission_count INT NOT NULL DEFAULT 0,
		best_submission_id VARCHAR(64) NOT NULL DEFAULT '',
		participated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (tournament_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS processed_entries (
		tournament_id VARCHAR(64) NOT NULL,
		user_id VARCHAR(128) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (tournament_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS processed_posts (
		post_id VARCHAR(128) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS user_titles (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(128) NOT NULL,
		tournament_id VARCHAR(64) NOT NULL,
		tournament_name VARCHAR(255) NOT NULL DEFAULT '',
		rank INT NOT NULL,
		title VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		awarded_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tournaments_status ON tournaments(status, metric)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(tournament_id, user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_ranking_entries_score ON ranking_entries(tournament_id, score DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_user_titles_user ON user_titles(user_id, awarded_at DESC)`,
}
