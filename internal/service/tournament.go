package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/gate"
	"github.com/matusita0314/eging-map-app/internal/lifecycle"
	"github.com/matusita0314/eging-map-app/internal/metrics"
	"github.com/matusita0314/eging-map-app/internal/ranking"
)

// Store is the full document store the service works against
type Store interface {
	ranking.Store
	gate.Store
	lifecycle.Store

	GetSubmission(ctx context.Context, tournamentID, submissionID string) (*domain.Submission, error)
	GetParticipationEntry(ctx context.Context, tournamentID, userID string) (*domain.ParticipationEntry, error)
	// IncrementParticipantCount reports false when userID was already counted
	IncrementParticipantCount(ctx context.Context, tournamentID, userID string) (bool, error)
	// AwardPrizes writes the titles, sets prizesAwarded and finishes the
	// tournament atomically. It fails with ErrPrizesAlreadyAwarded when
	// the flag is already set.
	AwardPrizes(ctx context.Context, tournamentID string, titles []domain.AwardedTitle, awardedAt time.Time) error
	// RecordCatch applies a post to the author's stats once per post ID
	RecordCatch(ctx context.Context, evt domain.PostCreatedEvent, apply func(domain.AnglerStats) domain.AnglerStats) (*domain.AnglerStats, bool, error)
}

// StandingsReader serves cached standings. An empty result is a cache miss.
type StandingsReader interface {
	TopStandings(ctx context.Context, tournamentID string, limit int) ([]domain.RankingEntry, error)
}

// TournamentService reacts to document changes and serves the admin operations
type TournamentService struct {
	store      Store
	reconciler *ranking.Reconciler
	gate       *gate.Gate
	lifecycle  *lifecycle.Controller
	standings  StandingsReader
	config     *config.RankingConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
}

// NewTournamentService creates a new tournament service
func NewTournamentService(
	store Store,
	reconciler *ranking.Reconciler,
	gate *gate.Gate,
	controller *lifecycle.Controller,
	cfg *config.RankingConfig,
	m *metrics.Metrics,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		store:      store,
		reconciler: reconciler,
		gate:       gate,
		lifecycle:  controller,
		config:     cfg,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// SetStandingsReader sets the cache consulted before the store for standings
func (s *TournamentService) SetStandingsReader(r StandingsReader) {
	s.standings = r
}

// HandleSubmissionUpdated reconciles the author's score when a submission
// enters, leaves, or changes judged values within the approved state.
// Like-count changes are left to the engagement job.
func (s *TournamentService) HandleSubmissionUpdated(ctx context.Context, evt domain.SubmissionUpdatedEvent) error {
	return s.observe(domain.EventSubmissionUpdated, evt.TournamentID, func() (bool, error) {
		before, after := evt.Before, evt.After
		if after == nil {
			if evt.SubmissionID == "" {
				return false, nil
			}
			// thin notification: judge the stored document as newly seen
			current, err := s.store.GetSubmission(ctx, evt.TournamentID, evt.SubmissionID)
			if err != nil {
				return false, fmt.Errorf("loading submission: %w", err)
			}
			after = current
		}

		switch {
		case after.IsApproved() && (!before.IsApproved() || !before.JudgedValuesEqual(after)):
			return true, s.approve(ctx, evt.TournamentID, after.UserID)
		case before.IsApproved() && !after.IsApproved():
			return true, s.reconcile(ctx, evt.TournamentID, after.UserID)
		default:
			return false, nil
		}
	})
}

// HandleSubmissionDeleted reconciles the author of a removed submission
func (s *TournamentService) HandleSubmissionDeleted(ctx context.Context, evt domain.SubmissionDeletedEvent) error {
	return s.observe(domain.EventSubmissionDeleted, evt.TournamentID, func() (bool, error) {
		if evt.Prior == nil || evt.Prior.UserID == "" {
			return false, fmt.Errorf("%w: deleted submission %s has no prior state", domain.ErrInvalidArgument, evt.SubmissionID)
		}
		return true, s.reconcile(ctx, evt.TournamentID, evt.Prior.UserID)
	})
}

// HandleEntryCreated counts a new participant exactly once
func (s *TournamentService) HandleEntryCreated(ctx context.Context, evt domain.EntryCreatedEvent) error {
	return s.observe(domain.EventEntryCreated, evt.TournamentID, func() (bool, error) {
		if evt.TournamentID == "" || evt.UserID == "" {
			return false, fmt.Errorf("%w: entry event needs tournament and user", domain.ErrInvalidArgument)
		}

		counted, err := s.store.IncrementParticipantCount(ctx, evt.TournamentID, evt.UserID)
		if err != nil {
			return false, fmt.Errorf("incrementing participant count: %w", err)
		}
		if !counted {
			s.logger.Debug("participant already counted",
				"tournament_id", evt.TournamentID,
				"user_id", evt.UserID,
			)
		}
		return counted, nil
	})
}

// HandlePostCreated advances the author's angler stats for a new catch
func (s *TournamentService) HandlePostCreated(ctx context.Context, evt domain.PostCreatedEvent) error {
	return s.observe(domain.EventPostCreated, "", func() (bool, error) {
		if evt.PostID == "" || evt.UserID == "" {
			return false, fmt.Errorf("%w: post event needs post and user", domain.ErrInvalidArgument)
		}

		var previous domain.AnglerRank
		stats, applied, err := s.store.RecordCatch(ctx, evt, func(cur domain.AnglerStats) domain.AnglerStats {
			previous = cur.Rank
			return cur.WithCatch(evt.Size)
		})
		if err != nil {
			return false, fmt.Errorf("recording catch: %w", err)
		}
		// stats written before ranks existed carry no rank
		from := cmp.Or(previous, domain.AnglerBeginner)
		if applied && stats.Rank != from {
			s.logger.Info("angler promoted",
				"user_id", evt.UserID,
				"from", from,
				"to", stats.Rank,
			)
		}
		return applied, nil
	})
}

// approve applies the limit policy, then reconciles
func (s *TournamentService) approve(ctx context.Context, tournamentID, userID string) error {
	tournament, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return fmt.Errorf("getting tournament: %w", err)
	}
	if _, err := s.gate.Apply(ctx, tournament, userID); err != nil {
		return fmt.Errorf("applying submission limit: %w", err)
	}
	return s.reconcile(ctx, tournamentID, userID)
}

// reconcile recomputes one user, then re-derives every rank
func (s *TournamentService) reconcile(ctx context.Context, tournamentID, userID string) error {
	if _, err := s.reconciler.RecalculateUserScore(ctx, tournamentID, userID); err != nil {
		return fmt.Errorf("recalculating user score: %w", err)
	}
	if _, err := s.reconciler.ReorderRanks(ctx, tournamentID); err != nil {
		return fmt.Errorf("reordering ranks: %w", err)
	}
	return nil
}

// observe records the outcome of an event handler. Not-found errors are
// logged and dropped; anything else goes back to the caller.
func (s *TournamentService) observe(eventType domain.EventType, tournamentID string, fn func() (bool, error)) error {
	acted, err := fn()
	switch {
	case err == nil && acted:
		s.metrics.EventProcessed(string(eventType), metrics.OutcomeOK)
		return nil
	case err == nil:
		s.metrics.EventProcessed(string(eventType), metrics.OutcomeSkipped)
		return nil
	case domain.IsNotFoundError(err):
		s.metrics.EventProcessed(string(eventType), metrics.OutcomeSkipped)
		s.logger.Warn("dropping event for missing document",
			"event", eventType,
			"tournament_id", tournamentID,
			"error", err,
		)
		return nil
	default:
		s.metrics.EventProcessed(string(eventType), metrics.OutcomeError)
		s.logger.Error("event handler failed",
			"event", eventType,
			"tournament_id", tournamentID,
			"error", err,
		)
		return err
	}
}
