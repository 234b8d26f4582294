package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/lifecycle"
)

// RunLifecycleScan advances tournament statuses as of now
func (s *TournamentService) RunLifecycleScan(ctx context.Context) (lifecycle.Result, error) {
	return s.lifecycle.Scan(ctx, s.now())
}

// RecalculateEngagementTournaments fully recomputes every live tournament
// ranked by likes, since like counts change without a submission event.
// It returns the number of tournaments recomputed.
func (s *TournamentService) RecalculateEngagementTournaments(ctx context.Context) (int, error) {
	tournaments, err := s.store.ListTournaments(ctx, domain.TournamentFilter{
		Statuses: []domain.TournamentStatus{domain.StatusOngoing, domain.StatusJudging},
		Metric:   domain.MetricEngagement,
	})
	if err != nil {
		return 0, fmt.Errorf("listing engagement tournaments: %w", err)
	}

	var (
		done int
		errs []error
	)
	for _, t := range tournaments {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.reconciler.RecalculateAll(ctx, t.ID); err != nil {
			s.logger.Error("failed to recalculate engagement tournament",
				"tournament_id", t.ID,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("tournament %s: %w", t.ID, err))
			continue
		}
		done++
	}

	s.logger.Info("engagement recalculation completed",
		"tournaments", len(tournaments),
		"recalculated", done,
	)
	return done, errors.Join(errs...)
}
