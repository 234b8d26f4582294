package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/ranking"
)

// Standings returns the top entries of a tournament in rank order
func (s *TournamentService) Standings(ctx context.Context, tournamentID string, limit int) ([]domain.RankingEntry, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	if s.standings != nil {
		entries, err := s.standings.TopStandings(ctx, tournamentID, limit)
		switch {
		case err != nil:
			s.logger.Warn("standings cache read failed",
				"tournament_id", tournamentID,
				"error", err,
			)
		case len(entries) > 0:
			return entries, nil
		}
	}

	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, fmt.Errorf("getting tournament: %w", err)
	}

	entries, err := s.store.ListRankingEntries(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing ranking entries: %w", err)
	}

	// unranked entries follow, in the order the next reorder would give them
	ranking.SortEntries(entries)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Rank, entries[j].Rank
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// UserStanding returns one user's participation entry
func (s *TournamentService) UserStanding(ctx context.Context, tournamentID, userID string) (*domain.ParticipationEntry, error) {
	entry, err := s.store.GetParticipationEntry(ctx, tournamentID, userID)
	if err != nil {
		return nil, fmt.Errorf("getting participation entry: %w", err)
	}
	return entry, nil
}
