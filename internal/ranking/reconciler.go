// Package ranking keeps the cached RankingEntry and ParticipationEntry
// documents of a tournament in line with its approved submissions.
//
// Scores are recomputed per user from scratch, and ranks are always
// re-derived over the whole tournament, so every operation is safe to
// repeat after a partial failure or a duplicate delivery.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/metrics"
	"github.com/matusita0314/eging-map-app/internal/scoring"
)

// Store is the document access the reconciler needs
type Store interface {
	GetTournament(ctx context.Context, id string) (*domain.Tournament, error)
	ListSubmissions(ctx context.Context, tournamentID string, filter domain.SubmissionFilter) ([]domain.Submission, error)
	GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	ListRankingEntries(ctx context.Context, tournamentID string) ([]domain.RankingEntry, error)
	UpsertScore(ctx context.Context, update domain.ScoreUpdate) error
	ApplyRanks(ctx context.Context, tournamentID string, ranks []domain.RankAssignment, reconciledAt time.Time) error
}

// StandingsCache receives the ordered standings after every reorder
type StandingsCache interface {
	ReplaceStandings(ctx context.Context, tournamentID string, entries []domain.RankingEntry) error
	Invalidate(ctx context.Context, tournamentID string) error
}

// Broadcaster pushes the ordered standings to live subscribers
type Broadcaster interface {
	BroadcastStandings(tournamentID string, entries []domain.RankingEntry)
}

// Reconciler recomputes scores and ranks
type Reconciler struct {
	store       Store
	cache       StandingsCache
	broadcaster Broadcaster
	config      *config.RankingConfig
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewReconciler creates a new reconciler
func NewReconciler(
	store Store,
	cfg *config.RankingConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		store:   store,
		config:  cfg,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// SetStandingsCache sets the cache refreshed after each reorder
func (r *Reconciler) SetStandingsCache(c StandingsCache) {
	r.cache = c
}

// SetBroadcaster sets the live standings broadcaster
func (r *Reconciler) SetBroadcaster(b Broadcaster) {
	r.broadcaster = b
}

// RecalculateUserScore recomputes one user's score from their approved
// submissions and writes it to both entry documents.
func (r *Reconciler) RecalculateUserScore(ctx context.Context, tournamentID, userID string) (*domain.RankingEntry, error) {
	entry, err := r.recalculateUserScore(ctx, tournamentID, userID)
	r.metrics.Reconciled(err)
	return entry, err
}

func (r *Reconciler) recalculateUserScore(ctx context.Context, tournamentID, userID string) (*domain.RankingEntry, error) {
	tournament, err := r.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("getting tournament: %w", err)
	}

	subs, err := r.store.ListSubmissions(ctx, tournamentID, domain.SubmissionFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}

	approved := make([]domain.Submission, 0, len(subs))
	for _, s := range subs {
		if s.Status == domain.SubmissionApproved {
			approved = append(approved, s)
		}
	}

	res, err := scoring.Compute(tournament.Rule, approved)
	if err != nil {
		return nil, fmt.Errorf("computing score: %w", err)
	}

	author := r.author(ctx, userID)
	now := r.now()

	update := domain.ScoreUpdate{
		TournamentID:     tournamentID,
		UserID:           userID,
		Author:           author,
		Score:            res.Score,
		AchievedAt:       res.AchievedAt,
		SubmissionCount:  len(subs),
		BestSubmissionID: res.BestSubmissionID,
		UpdatedAt:        now,
	}
	if err := r.store.UpsertScore(ctx, update); err != nil {
		return nil, fmt.Errorf("writing score: %w", err)
	}

	r.logger.Debug("recalculated user score",
		"tournament_id", tournamentID,
		"user_id", userID,
		"score", res.Score,
		"approved", len(approved),
	)

	return &domain.RankingEntry{
		TournamentID: tournamentID,
		UserID:       userID,
		Author:       author,
		Score:        res.Score,
		AchievedAt:   res.AchievedAt,
		UpdatedAt:    now,
	}, nil
}

// author reads the display fields from the profile. A failed lookup falls
// back to the placeholder so the score still gets written.
func (r *Reconciler) author(ctx context.Context, userID string) domain.Author {
	profile, err := r.store.GetUserProfile(ctx, userID)
	if err != nil {
		r.logger.Warn("using placeholder author",
			"user_id", userID,
			"error", err,
		)
		return domain.Author{Name: r.config.PlaceholderName}
	}
	return profile.Author()
}

// ReorderRanks assigns dense ranks 1..N over every ranking entry of the
// tournament and returns N.
func (r *Reconciler) ReorderRanks(ctx context.Context, tournamentID string) (int, error) {
	start := r.now()

	if _, err := r.store.GetTournament(ctx, tournamentID); err != nil {
		return 0, fmt.Errorf("getting tournament: %w", err)
	}

	entries, err := r.store.ListRankingEntries(ctx, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("listing ranking entries: %w", err)
	}

	SortEntries(entries)
	ranks := make([]domain.RankAssignment, len(entries))
	for i := range entries {
		rank := i + 1
		entries[i].Rank = &rank
		ranks[i] = domain.RankAssignment{UserID: entries[i].UserID, Rank: rank}
	}

	if err := r.store.ApplyRanks(ctx, tournamentID, ranks, r.now()); err != nil {
		return 0, fmt.Errorf("applying ranks: %w", err)
	}

	r.metrics.ObserveReorder(r.now().Sub(start))
	r.publish(ctx, tournamentID, entries)

	r.logger.Info("reordered ranks",
		"tournament_id", tournamentID,
		"entries", len(entries),
	)
	return len(entries), nil
}

// publish hands the new standings to the cache and the live subscribers.
// Failures here never fail the reorder. A cache that could not be
// refreshed is dropped so readers fall back to the store.
func (r *Reconciler) publish(ctx context.Context, tournamentID string, entries []domain.RankingEntry) {
	if r.cache != nil {
		if err := r.cache.ReplaceStandings(ctx, tournamentID, entries); err != nil {
			r.logger.Warn("failed to refresh standings cache",
				"tournament_id", tournamentID,
				"error", err,
			)
			if err := r.cache.Invalidate(ctx, tournamentID); err != nil {
				r.logger.Error("failed to invalidate standings cache",
					"tournament_id", tournamentID,
					"error", err,
				)
			}
		}
	}
	if r.broadcaster != nil {
		r.broadcaster.BroadcastStandings(tournamentID, entries)
	}
}

// RecalculateAll recomputes every participant of the tournament, then
// reorders. Participants are users with a submission or an existing
// ranking entry. It returns the number of ranked entries.
func (r *Reconciler) RecalculateAll(ctx context.Context, tournamentID string) (int, error) {
	if _, err := r.store.GetTournament(ctx, tournamentID); err != nil {
		return 0, fmt.Errorf("getting tournament: %w", err)
	}

	userIDs, err := r.participants(ctx, tournamentID)
	if err != nil {
		return 0, err
	}

	for _, userID := range userIDs {
		if _, err := r.RecalculateUserScore(ctx, tournamentID, userID); err != nil {
			return 0, fmt.Errorf("recalculating user %s: %w", userID, err)
		}
	}

	return r.ReorderRanks(ctx, tournamentID)
}

func (r *Reconciler) participants(ctx context.Context, tournamentID string) ([]string, error) {
	subs, err := r.store.ListSubmissions(ctx, tournamentID, domain.SubmissionFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	entries, err := r.store.ListRankingEntries(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing ranking entries: %w", err)
	}

	seen := make(map[string]struct{}, len(entries))
	for _, s := range subs {
		seen[s.UserID] = struct{}{}
	}
	for _, e := range entries {
		seen[e.UserID] = struct{}{}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SortEntries orders entries best first: higher score, then earlier
// AchievedAt, then user ID. A zero AchievedAt sorts after any real time.
func SortEntries(entries []domain.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.AchievedAt.Equal(b.AchievedAt) {
			switch {
			case a.AchievedAt.IsZero():
				return false
			case b.AchievedAt.IsZero():
				return true
			default:
				return a.AchievedAt.Before(b.AchievedAt)
			}
		}
		return a.UserID < b.UserID
	})
}
