// Package firestore is the Cloud Firestore document store used in production.
package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
)

// Store reads and writes the app's Firestore collections
type Store struct {
	client *firestore.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewStore connects to Firestore, or to the emulator when one is configured
func NewStore(ctx context.Context, cfg *config.FirestoreConfig, logger *slog.Logger) (*Store, error) {
	var opts []option.ClientOption
	if cfg.EmulatorHost != "" {
		if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.EmulatorHost); err != nil {
			return nil, fmt.Errorf("setting emulator host: %w", err)
		}
	}
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	logger.Info("connected to firestore",
		"project_id", cfg.ProjectID,
		"emulator", os.Getenv("FIRESTORE_EMULATOR_HOST") != "",
	)

	return &Store{
		client: client,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close closes the client
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping reads at most one tournament document
func (s *Store) Ping(ctx context.Context) error {
	iter := s.client.Collection(colTournaments).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("pinging firestore: %w", err)
	}
	return nil
}

func (s *Store) tournament(id string) *firestore.DocumentRef {
	return s.client.Collection(colTournaments).Doc(id)
}

func (s *Store) user(id string) *firestore.DocumentRef {
	return s.client.Collection(colUsers).Doc(id)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// GetTournament retrieves a tournament by ID
func (s *Store) GetTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	snap, err := s.tournament(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("tournament %s: %w", id, domain.ErrTournamentNotFound)
		}
		return nil, fmt.Errorf("getting tournament: %w", err)
	}

	var doc tournamentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding tournament: %w", err)
	}
	t := doc.toDomain(id)
	return &t, nil
}

// ListTournaments returns the tournaments passing filter, ordered by ID
func (s *Store) ListTournaments(ctx context.Context, filter domain.TournamentFilter) ([]domain.Tournament, error) {
	q := s.client.Collection(colTournaments).Query
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q = q.Where("status", "in", statuses)
	}
	if filter.Metric != "" {
		q = q.Where("rule.metric", "==", string(filter.Metric))
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing tournaments: %w", err)
	}

	out := make([]domain.Tournament, 0, len(snaps))
	for _, snap := range snaps {
		var doc tournamentDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decoding tournament %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateTournamentStatus moves a tournament from one status to the next.
// It reports false without writing when the stored status is not from.
func (s *Store) UpdateTournamentStatus(ctx context.Context, id string, from, to domain.TournamentStatus) (bool, error) {
	ref := s.tournament(id)

	var moved bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		moved = false

		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("tournament %s: %w", id, domain.ErrTournamentNotFound)
			}
			return err
		}
		current, err := snap.DataAt("status")
		if err != nil {
			return fmt.Errorf("reading status: %w", err)
		}
		if current != string(from) {
			return nil
		}

		moved = true
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(to)},
			{Path: "updatedAt", Value: s.now()},
		})
	})
	if err != nil {
		return false, fmt.Errorf("updating tournament status: %w", err)
	}
	return moved, nil
}

// IncrementParticipantCount counts a user once per tournament. A marker
// document keyed by user ID makes redelivered events no-ops.
func (s *Store) IncrementParticipantCount(ctx context.Context, tournamentID, userID string) (bool, error) {
	ref := s.tournament(tournamentID)
	marker := ref.Collection(colProcessedEntries).Doc(userID)

	var counted bool
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		counted = false

		if _, err := tx.Get(ref); err != nil {
			if isNotFound(err) {
				return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
			}
			return err
		}
		if _, err := tx.Get(marker); err == nil {
			return nil
		} else if !isNotFound(err) {
			return err
		}

		if err := tx.Create(marker, map[string]any{"createdAt": s.now()}); err != nil {
			return err
		}
		counted = true
		return tx.Update(ref, []firestore.Update{
			{Path: "participantCount", Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		return false, fmt.Errorf("incrementing participant count: %w", err)
	}
	return counted, nil
}

// AwardPrizes writes the titles and finishes the tournament in one transaction
func (s *Store) AwardPrizes(ctx context.Context, tournamentID string, titles []domain.AwardedTitle, awardedAt time.Time) error {
	ref := s.tournament(tournamentID)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
			}
			return err
		}
		if awarded, err := snap.DataAt("prizesAwarded"); err == nil {
			if done, _ := awarded.(bool); done {
				return domain.ErrPrizesAlreadyAwarded
			}
		}

		for _, t := range titles {
			doc := titleDoc{
				TournamentID:   t.TournamentID,
				TournamentName: t.TournamentName,
				Rank:           t.Rank,
				Title:          t.Title,
				Description:    t.Description,
				AwardedAt:      t.AwardedAt,
			}
			if err := tx.Set(s.user(t.UserID).Collection(colTitles).Doc(t.ID), doc); err != nil {
				return err
			}
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "prizesAwarded", Value: true},
			{Path: "status", Value: string(domain.StatusFinished)},
			{Path: "updatedAt", Value: awardedAt},
		})
	})
	if err != nil {
		return fmt.Errorf("awarding prizes: %w", err)
	}
	return nil
}
