package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// GetUserProfile retrieves a user profile
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	snap, err := s.user(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding user: %w", err)
	}
	u := doc.toDomain(userID)
	return &u, nil
}

// RecordCatch applies a new post to the author's stats once per post ID
func (s *Store) RecordCatch(ctx context.Context, evt domain.PostCreatedEvent, apply func(domain.AnglerStats) domain.AnglerStats) (*domain.AnglerStats, bool, error) {
	ref := s.user(evt.UserID)
	marker := ref.Collection(colProcessedPosts).Doc(evt.PostID)

	var (
		stats   domain.AnglerStats
		applied bool
	)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = false

		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("user %s: %w", evt.UserID, domain.ErrUserNotFound)
			}
			return err
		}
		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decoding user: %w", err)
		}
		stats = doc.toDomain(evt.UserID).Stats

		if _, err := tx.Get(marker); err == nil {
			return nil
		} else if !isNotFound(err) {
			return err
		}

		stats = apply(stats)
		if err := tx.Create(marker, map[string]any{"createdAt": s.now()}); err != nil {
			return err
		}
		applied = true
		return tx.Update(ref, []firestore.Update{
			{Path: "totalCatches", Value: stats.TotalCatches},
			{Path: "maxSize", Value: stats.MaxSize},
			{Path: "rank", Value: string(stats.Rank)},
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("recording catch: %w", err)
	}
	return &stats, applied, nil
}
