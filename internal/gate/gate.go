// Package gate enforces the per-user submission limit of a tournament.
package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/metrics"
	"github.com/matusita0314/eging-map-app/internal/scoring"
)

// Store is the submission access the gate needs
type Store interface {
	ListSubmissions(ctx context.Context, tournamentID string, filter domain.SubmissionFilter) ([]domain.Submission, error)
	SetSubmissionStatus(ctx context.Context, tournamentID string, ids []string, status domain.SubmissionStatus) error
}

// Gate applies a tournament's limit policy to one user's approved submissions
type Gate struct {
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a new gate
func New(store Store, m *metrics.Metrics, logger *slog.Logger) *Gate {
	return &Gate{
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Apply enforces the limit policy for userID and returns the IDs of the
// submissions it marked overwritten. Under single-best-overwrite every
// approved submission is re-scanned and only the best one stays approved.
func (g *Gate) Apply(ctx context.Context, tournament *domain.Tournament, userID string) ([]string, error) {
	if tournament.Rule.LimitPolicy != domain.LimitSingleBestOverwrite {
		return nil, nil
	}
	// an unknown metric would value every catch at 0 and keep the wrong one
	if err := tournament.Rule.Validate(); err != nil {
		return nil, fmt.Errorf("applying limit policy: %w", err)
	}

	subs, err := g.store.ListSubmissions(ctx, tournament.ID, domain.SubmissionFilter{
		UserID: userID,
		Status: domain.SubmissionApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("listing approved submissions: %w", err)
	}

	best, ok := scoring.Best(tournament.Rule, subs)
	if !ok || len(subs) == 1 {
		return nil, nil
	}

	losers := make([]string, 0, len(subs)-1)
	for _, s := range subs {
		if s.ID != best.ID {
			losers = append(losers, s.ID)
		}
	}

	if err := g.store.SetSubmissionStatus(ctx, tournament.ID, losers, domain.SubmissionOverwritten); err != nil {
		return nil, fmt.Errorf("overwriting submissions: %w", err)
	}

	g.metrics.Overwritten(len(losers))
	g.logger.Info("overwrote superseded submissions",
		"tournament_id", tournament.ID,
		"user_id", userID,
		"kept_submission_id", best.ID,
		"overwritten", len(losers),
	)
	return losers, nil
}
