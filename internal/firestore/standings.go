package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// ListRankingEntries returns every ranking entry of a tournament, ordered by user ID
func (s *Store) ListRankingEntries(ctx context.Context, tournamentID string) ([]domain.RankingEntry, error) {
	snaps, err := s.tournament(tournamentID).Collection(colRankings).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing ranking entries: %w", err)
	}

	out := make([]domain.RankingEntry, 0, len(snaps))
	for _, snap := range snaps {
		var doc rankingDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decoding ranking entry %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(tournamentID, snap.Ref.ID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// GetParticipationEntry retrieves a user's participation entry
func (s *Store) GetParticipationEntry(ctx context.Context, tournamentID, userID string) (*domain.ParticipationEntry, error) {
	snap, err := s.tournament(tournamentID).Collection(colParticipants).Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("participant %s: %w", userID, domain.ErrEntryNotFound)
		}
		return nil, fmt.Errorf("getting participation entry: %w", err)
	}

	var doc participantDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding participation entry: %w", err)
	}
	e := doc.toDomain(tournamentID, userID)
	return &e, nil
}

// UpsertScore merges the score into the ranking and participant documents
// in one transaction. Ranks are left for the next reorder.
func (s *Store) UpsertScore(ctx context.Context, u domain.ScoreUpdate) error {
	t := s.tournament(u.TournamentID)
	rankingRef := t.Collection(colRankings).Doc(u.UserID)
	participantRef := t.Collection(colParticipants).Doc(u.UserID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(participantRef)
		created := isNotFound(err)
		if err != nil && !created {
			return err
		}

		if err := tx.Set(rankingRef, scoreFields(u), firestore.MergeAll); err != nil {
			return err
		}
		return tx.Set(participantRef, participantFields(u, created), firestore.MergeAll)
	})
	if err != nil {
		return fmt.Errorf("writing score: %w", err)
	}
	return nil
}

// ApplyRanks writes every rank to both entry collections and stamps the
// tournament, all in one transaction.
func (s *Store) ApplyRanks(ctx context.Context, tournamentID string, ranks []domain.RankAssignment, reconciledAt time.Time) error {
	t := s.tournament(tournamentID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(t); err != nil {
			if isNotFound(err) {
				return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
			}
			return err
		}

		for _, ra := range ranks {
			rank := ra.Rank
			if err := tx.Set(t.Collection(colRankings).Doc(ra.UserID), map[string]any{
				"rank":      rank,
				"updatedAt": reconciledAt,
			}, firestore.MergeAll); err != nil {
				return err
			}
			if err := tx.Set(t.Collection(colParticipants).Doc(ra.UserID), map[string]any{
				"currentRank": rank,
				"updatedAt":   reconciledAt,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}

		return tx.Update(t, []firestore.Update{
			{Path: "lastReconciledAt", Value: reconciledAt},
		})
	})
	if err != nil {
		return fmt.Errorf("applying ranks: %w", err)
	}

	s.logger.Debug("applied ranks",
		"tournament_id", tournamentID,
		"entries", len(ranks),
	)
	return nil
}
