package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// RecalculateResult is returned by RecalculateRankings
type RecalculateResult struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// AwardRequest maps final ranks to the winning users
type AwardRequest struct {
	TournamentID string
	Winners      map[int]string
}

// AwardResult is returned by AwardPrizes
type AwardResult struct {
	TournamentID string                `json:"tournament_id"`
	Titles       []domain.AwardedTitle `json:"titles"`
}

// RecalculateRankings recomputes every participant's score and rank
func (s *TournamentService) RecalculateRankings(ctx context.Context, caller *domain.Caller, tournamentID string) (*RecalculateResult, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	if tournamentID == "" {
		return nil, fmt.Errorf("%w: tournament id is required", domain.ErrInvalidArgument)
	}

	count, err := s.reconciler.RecalculateAll(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("recalculating rankings: %w", err)
	}

	s.logger.Info("rankings recalculated by admin",
		"tournament_id", tournamentID,
		"caller_id", caller.UserID,
		"count", count,
	)
	return &RecalculateResult{
		Message: fmt.Sprintf("recalculated rankings for %d participants", count),
		Count:   count,
	}, nil
}

// AwardPrizes grants the configured prize of each rank to its winner and
// finishes the tournament. It can succeed only once per tournament.
func (s *TournamentService) AwardPrizes(ctx context.Context, caller *domain.Caller, req AwardRequest) (*AwardResult, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	if err := validateAwardRequest(req); err != nil {
		return nil, err
	}

	tournament, err := s.store.GetTournament(ctx, req.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("getting tournament: %w", err)
	}
	if tournament.PrizesAwarded {
		return nil, domain.ErrPrizesAlreadyAwarded
	}
	if len(tournament.Prizes) == 0 {
		return nil, domain.ErrNoPrizeConfiguration
	}

	ranks := make([]int, 0, len(req.Winners))
	for rank := range req.Winners {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)

	now := s.now()
	titles := make([]domain.AwardedTitle, 0, len(ranks))
	for _, rank := range ranks {
		prize, ok := tournament.PrizeFor(rank)
		if !ok {
			return nil, fmt.Errorf("%w: no prize configured for rank %d", domain.ErrInvalidArgument, rank)
		}
		titles = append(titles, domain.AwardedTitle{
			ID:             s.newID(),
			UserID:         req.Winners[rank],
			TournamentID:   tournament.ID,
			TournamentName: tournament.Name,
			Rank:           rank,
			Title:          prize.Title,
			Description:    prize.Description,
			AwardedAt:      now,
		})
	}

	if err := s.store.AwardPrizes(ctx, tournament.ID, titles, now); err != nil {
		return nil, fmt.Errorf("awarding prizes: %w", err)
	}

	s.logger.Info("prizes awarded",
		"tournament_id", tournament.ID,
		"caller_id", caller.UserID,
		"titles", len(titles),
	)
	return &AwardResult{TournamentID: tournament.ID, Titles: titles}, nil
}

func authenticated(caller *domain.Caller) error {
	if caller == nil || caller.UserID == "" {
		return domain.ErrUnauthenticated
	}
	return nil
}

func validateAwardRequest(req AwardRequest) error {
	if req.TournamentID == "" {
		return fmt.Errorf("%w: tournament id is required", domain.ErrInvalidArgument)
	}
	if len(req.Winners) == 0 {
		return fmt.Errorf("%w: winners are required", domain.ErrInvalidArgument)
	}
	for rank, userID := range req.Winners {
		if rank < 1 {
			return fmt.Errorf("%w: rank %d must be positive", domain.ErrInvalidArgument, rank)
		}
		if userID == "" {
			return fmt.Errorf("%w: rank %d has no winner", domain.ErrInvalidArgument, rank)
		}
	}
	return nil
}
