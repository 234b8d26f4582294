package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/gate"
	"github.com/matusita0314/eging-map-app/internal/lifecycle"
	"github.com/matusita0314/eging-map-app/internal/memstore"
	"github.com/matusita0314/eging-map-app/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	clock      = time.Date(2026, 10, 3, 9, 0, 0, 0, time.UTC)
)

func newTestService(store Store) *TournamentService {
	cfg := &config.RankingConfig{PlaceholderName: "Unknown angler", DefaultLimit: 2, MaxLimit: 3}
	reconciler := ranking.NewReconciler(store, cfg, nil, testLogger)
	svc := NewTournamentService(
		store,
		reconciler,
		gate.New(store, nil, testLogger),
		lifecycle.NewController(store, time.UTC, nil, testLogger),
		cfg,
		nil,
		testLogger,
	)
	svc.now = func() time.Time { return clock }
	ids := 0
	svc.newID = func() string {
		ids++
		return "title-" + string(rune('0'+ids))
	}
	return svc
}

func seed(s *memstore.Store, rule domain.ScoringRule) {
	s.PutTournament(domain.Tournament{
		ID:     "t1",
		Name:   "Spring Aori Cup",
		Rule:   rule,
		Status: domain.StatusOngoing,
		Prizes: []domain.Prize{
			{Rank: 1, Title: "Aori King", Description: "Biggest squid of spring"},
			{Rank: 2, Title: "Runner-up"},
		},
	})
	for _, u := range []domain.UserProfile{
		{ID: "u1", DisplayName: "Aki"},
		{ID: "u2", DisplayName: "Ren"},
		{ID: "u3", DisplayName: "Sora"},
	} {
		s.PutUser(u)
	}
}

func sub(id, user string, status domain.SubmissionStatus, size float64, at time.Time) domain.Submission {
	return domain.Submission{
		ID: id, TournamentID: "t1", UserID: user, Status: status,
		JudgedSize: size, SubmittedAt: at,
	}
}

// approve stores the new version and delivers the matching event
func approve(t *testing.T, svc *TournamentService, s *memstore.Store, before domain.Submission, size float64) {
	t.Helper()
	after := before
	after.Status = domain.SubmissionApproved
	after.JudgedSize = size
	s.PutSubmission(after)
	require.NoError(t, svc.HandleSubmissionUpdated(context.Background(), domain.SubmissionUpdatedEvent{
		TournamentID: "t1", SubmissionID: after.ID, Before: &before, After: &after,
	}))
}

func rankOf(t *testing.T, s *memstore.Store, user string) (float64, int) {
	t.Helper()
	e, ok := s.RankingEntry("t1", user)
	require.True(t, ok, "no ranking entry for %s", user)
	require.NotNil(t, e.Rank, "no rank for %s", user)
	return e.Score, *e.Rank
}

func TestHandleSubmissionUpdated_Approval(t *testing.T) {
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize, Aggregation: domain.AggregationMax})
	svc := newTestService(s)

	p1 := sub("s1", "u1", domain.SubmissionPending, 0, clock)
	p2 := sub("s2", "u2", domain.SubmissionPending, 0, clock)
	s.PutSubmission(p1)
	s.PutSubmission(p2)

	approve(t, svc, s, p1, 21)
	score, rank := rankOf(t, s, "u1")
	assert.Equal(t, float64(21), score)
	assert.Equal(t, 1, rank)

	approve(t, svc, s, p2, 24.5)
	score, rank = rankOf(t, s, "u2")
	assert.Equal(t, 24.5, score)
	assert.Equal(t, 1, rank)
	_, rank = rankOf(t, s, "u1")
	assert.Equal(t, 2, rank)

	p, err := svc.UserStanding(context.Background(), "t1", "u1")
	require.NoError(t, err)
	require.NotNil(t, p.CurrentRank)
	assert.Equal(t, 2, *p.CurrentRank)
	assert.Equal(t, "Aki", p.Author.Name)
}

func TestHandleSubmissionUpdated_SingleBestOverwrite(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize, LimitPolicy: domain.LimitSingleBestOverwrite})
	svc := newTestService(s)

	first := sub("s1", "u1", domain.SubmissionPending, 0, clock)
	second := sub("s2", "u1", domain.SubmissionPending, 0, clock.Add(time.Hour))
	s.PutSubmission(first)
	s.PutSubmission(second)

	approve(t, svc, s, first, 20)
	approve(t, svc, s, second, 25)

	approved, err := s.ListSubmissions(ctx, "t1", domain.SubmissionFilter{UserID: "u1", Status: domain.SubmissionApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "s2", approved[0].ID)

	old, _ := s.GetSubmission(ctx, "t1", "s1")
	assert.Equal(t, domain.SubmissionOverwritten, old.Status)

	score, rank := rankOf(t, s, "u1")
	assert.Equal(t, float64(25), score)
	assert.Equal(t, 1, rank)

	p, _ := s.GetParticipationEntry(ctx, "t1", "u1")
	assert.Equal(t, "s2", p.BestSubmissionID)
}

func TestHandleSubmissionUpdated_InvalidRuleKeepsApprovals(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: "weight", LimitPolicy: domain.LimitSingleBestOverwrite})
	svc := newTestService(s)

	s.PutSubmission(sub("a", "u1", domain.SubmissionApproved, 10, clock))
	before := sub("b", "u1", domain.SubmissionPending, 0, clock.Add(time.Hour))
	after := before
	after.Status = domain.SubmissionApproved
	after.JudgedSize = 40
	s.PutSubmission(after)

	err := svc.HandleSubmissionUpdated(ctx, domain.SubmissionUpdatedEvent{
		TournamentID: "t1", SubmissionID: "b", Before: &before, After: &after,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRule)

	for _, id := range []string{"a", "b"} {
		got, err := s.GetSubmission(ctx, "t1", id)
		require.NoError(t, err)
		assert.Equal(t, domain.SubmissionApproved, got.Status, id)
	}
}

func TestHandleSubmissionUpdated_IgnoredChanges(t *testing.T) {
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize})
	svc := newTestService(s)

	approvedSub := sub("s1", "u1", domain.SubmissionApproved, 20, clock)
	liked := approvedSub
	liked.LikeCount = 12
	pending := sub("s2", "u1", domain.SubmissionPending, 0, clock)
	stillPending := pending
	stillPending.LikeCount = 1

	tests := []struct {
		name          string
		before, after *domain.Submission
	}{
		{name: "likes only", before: &approvedSub, after: &liked},
		{name: "pending stays pending", before: &pending, after: &stillPending},
		{name: "no after state", before: &approvedSub, after: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.HandleSubmissionUpdated(context.Background(), domain.SubmissionUpdatedEvent{
				TournamentID: "t1", SubmissionID: "s1", Before: tt.before, After: tt.after,
			})
			require.NoError(t, err)
			_, ok := s.RankingEntry("t1", "u1")
			assert.False(t, ok)
		})
	}
}

func TestHandleSubmissionUpdated_Unapproval(t *testing.T) {
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricCount})
	svc := newTestService(s)

	p := domain.Submission{ID: "s1", TournamentID: "t1", UserID: "u1", Status: domain.SubmissionPending}
	s.PutSubmission(p)
	after := p
	after.Status = domain.SubmissionApproved
	after.JudgedCount = 3
	s.PutSubmission(after)
	require.NoError(t, svc.HandleSubmissionUpdated(context.Background(), domain.SubmissionUpdatedEvent{
		TournamentID: "t1", SubmissionID: "s1", Before: &p, After: &after,
	}))
	score, _ := rankOf(t, s, "u1")
	assert.Equal(t, float64(3), score)

	reverted := after
	reverted.Status = domain.SubmissionPending
	s.PutSubmission(reverted)
	require.NoError(t, svc.HandleSubmissionUpdated(context.Background(), domain.SubmissionUpdatedEvent{
		TournamentID: "t1", SubmissionID: "s1", Before: &after, After: &reverted,
	}))
	score, rank := rankOf(t, s, "u1")
	assert.Equal(t, float64(0), score)
	assert.Equal(t, 1, rank)
}

func TestHandleSubmissionUpdated_ThinNotification(t *testing.T) {
	tests := []struct {
		name     string
		stored   *domain.Submission
		id       string
		wantRank bool
	}{
		{
			name:     "approved document is judged",
			stored:   &domain.Submission{ID: "s1", TournamentID: "t1", UserID: "u1", Status: domain.SubmissionApproved, JudgedSize: 18, SubmittedAt: clock},
			id:       "s1",
			wantRank: true,
		},
		{
			name:   "pending document is ignored",
			stored: &domain.Submission{ID: "s1", TournamentID: "t1", UserID: "u1", Status: domain.SubmissionPending, SubmittedAt: clock},
			id:     "s1",
		},
		{
			name: "missing document is dropped",
			id:   "nope",
		},
		{
			name: "no submission id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memstore.New()
			seed(s, domain.ScoringRule{Metric: domain.MetricSize, Aggregation: domain.AggregationMax})
			if tt.stored != nil {
				s.PutSubmission(*tt.stored)
			}
			svc := newTestService(s)

			err := svc.HandleSubmissionUpdated(context.Background(), domain.SubmissionUpdatedEvent{
				TournamentID: "t1", SubmissionID: tt.id,
			})
			require.NoError(t, err)

			_, ok := s.RankingEntry("t1", "u1")
			assert.Equal(t, tt.wantRank, ok)
			if tt.wantRank {
				score, rank := rankOf(t, s, "u1")
				assert.Equal(t, float64(18), score)
				assert.Equal(t, 1, rank)
			}
		})
	}
}

func TestHandleSubmissionUpdated_MissingTournamentIsDropped(t *testing.T) {
	s := memstore.New()
	svc := newTestService(s)

	before := sub("s1", "u1", domain.SubmissionPending, 0, clock)
	after := sub("s1", "u1", domain.SubmissionApproved, 20, clock)
	err := svc.HandleSubmissionUpdated(context.Background(), domain.SubmissionUpdatedEvent{
		TournamentID: "gone", SubmissionID: "s1", Before: &before, After: &after,
	})
	require.NoError(t, err)
	_, ok := s.RankingEntry("gone", "u1")
	assert.False(t, ok)
}

func TestHandleSubmissionDeleted(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize})
	svc := newTestService(s)

	a := sub("a", "u1", domain.SubmissionApproved, 18, clock)
	b := sub("b", "u2", domain.SubmissionApproved, 25, clock)
	s.PutSubmission(a)
	s.PutSubmission(b)
	_, err := svc.RecalculateRankings(ctx, &domain.Caller{UserID: "admin"}, "t1")
	require.NoError(t, err)

	s.DeleteSubmission("t1", "b")
	require.NoError(t, svc.HandleSubmissionDeleted(ctx, domain.SubmissionDeletedEvent{
		TournamentID: "t1", SubmissionID: "b", Prior: &b,
	}))

	score, rank := rankOf(t, s, "u2")
	assert.Equal(t, float64(0), score)
	assert.Equal(t, 2, rank)
	_, rank = rankOf(t, s, "u1")
	assert.Equal(t, 1, rank)

	err = svc.HandleSubmissionDeleted(ctx, domain.SubmissionDeletedEvent{TournamentID: "t1", SubmissionID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestHandleEntryCreated_CountsOncePerUser(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize})
	svc := newTestService(s)

	deliveries := []string{"u1", "u2", "u1", "u3", "u3", "u2", "u1"}
	for _, uid := range deliveries {
		require.NoError(t, svc.HandleEntryCreated(ctx, domain.EntryCreatedEvent{TournamentID: "t1", UserID: uid}))
	}

	tour, err := s.GetTournament(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), tour.ParticipantCount)

	assert.NoError(t, svc.HandleEntryCreated(ctx, domain.EntryCreatedEvent{TournamentID: "missing", UserID: "u1"}))
	assert.ErrorIs(t, svc.HandleEntryCreated(ctx, domain.EntryCreatedEvent{TournamentID: "t1"}), domain.ErrInvalidArgument)
}

func TestHandlePostCreated(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.PutUser(domain.UserProfile{ID: "u1", DisplayName: "Aki"})
	svc := newTestService(s)

	for i, size := range []float64{10, 12, 16, 11, 9} {
		evt := domain.PostCreatedEvent{PostID: "p" + string(rune('0'+i)), UserID: "u1", Size: size}
		require.NoError(t, svc.HandlePostCreated(ctx, evt))
		// duplicate delivery
		require.NoError(t, svc.HandlePostCreated(ctx, evt))
	}

	u, err := s.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, u.Stats.TotalCatches)
	assert.Equal(t, float64(16), u.Stats.MaxSize)
	assert.Equal(t, domain.AnglerAmateur, u.Stats.Rank)

	assert.NoError(t, svc.HandlePostCreated(ctx, domain.PostCreatedEvent{PostID: "px", UserID: "ghost"}))
}

func TestHandlePostCreated_PromotesRanklessStats(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.PutUser(domain.UserProfile{ID: "u1", DisplayName: "Aki", Stats: domain.AnglerStats{TotalCatches: 4, MaxSize: 20}})
	svc := newTestService(s)
	var logs bytes.Buffer
	svc.logger = slog.New(slog.NewTextHandler(&logs, nil))

	require.NoError(t, svc.HandlePostCreated(ctx, domain.PostCreatedEvent{PostID: "p1", UserID: "u1", Size: 9}))

	u, err := s.GetUserProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.AnglerAmateur, u.Stats.Rank)
	assert.Contains(t, logs.String(), "angler promoted")
	assert.Contains(t, logs.String(), "from=beginner")
	assert.Contains(t, logs.String(), "to=amateur")
}

func TestRecalculateRankings(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize})
	svc := newTestService(s)

	s.PutSubmission(sub("a", "u1", domain.SubmissionApproved, 12, clock))
	s.PutSubmission(sub("b", "u1", domain.SubmissionApproved, 27, clock))
	s.PutSubmission(sub("c", "u1", domain.SubmissionApproved, 19, clock))
	s.PutSubmission(sub("d", "u2", domain.SubmissionPending, 40, clock))

	res, err := svc.RecalculateRankings(ctx, &domain.Caller{UserID: "admin"}, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.NotEmpty(t, res.Message)

	score, rank := rankOf(t, s, "u1")
	assert.Equal(t, float64(27), score)
	assert.Equal(t, 1, rank)
	score, rank = rankOf(t, s, "u2")
	assert.Equal(t, float64(0), score)
	assert.Equal(t, 2, rank)

	// a second run changes nothing
	again, err := svc.RecalculateRankings(ctx, &domain.Caller{UserID: "admin"}, "t1")
	require.NoError(t, err)
	assert.Equal(t, res.Count, again.Count)
	score, _ = rankOf(t, s, "u1")
	assert.Equal(t, float64(27), score)
}

func TestRecalculateRankings_Errors(t *testing.T) {
	svc := newTestService(memstore.New())
	ctx := context.Background()

	tests := []struct {
		name   string
		caller *domain.Caller
		id     string
		want   domain.ErrorKind
	}{
		{name: "no caller", caller: nil, id: "t1", want: domain.KindUnauthenticated},
		{name: "empty caller", caller: &domain.Caller{}, id: "t1", want: domain.KindUnauthenticated},
		{name: "no tournament id", caller: &domain.Caller{UserID: "admin"}, id: "", want: domain.KindInvalidArgument},
		{name: "unknown tournament", caller: &domain.Caller{UserID: "admin"}, id: "nope", want: domain.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecalculateRankings(ctx, tt.caller, tt.id)
			require.Error(t, err)
			assert.Equal(t, tt.want, domain.KindOf(err))
		})
	}
}

func TestAwardPrizes(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize})
	svc := newTestService(s)
	admin := &domain.Caller{UserID: "admin"}

	res, err := svc.AwardPrizes(ctx, admin, AwardRequest{
		TournamentID: "t1",
		Winners:      map[int]string{2: "u2", 1: "u1"},
	})
	require.NoError(t, err)
	require.Len(t, res.Titles, 2)
	assert.Equal(t, 1, res.Titles[0].Rank)
	assert.Equal(t, "Aori King", res.Titles[0].Title)
	assert.Equal(t, "Spring Aori Cup", res.Titles[0].TournamentName)

	titles := s.Titles("u1")
	require.Len(t, titles, 1)
	assert.Equal(t, "Biggest squid of spring", titles[0].Description)
	assert.Equal(t, clock, titles[0].AwardedAt)

	tour, _ := s.GetTournament(ctx, "t1")
	assert.True(t, tour.PrizesAwarded)
	assert.Equal(t, domain.StatusFinished, tour.Status)

	_, err = svc.AwardPrizes(ctx, admin, AwardRequest{TournamentID: "t1", Winners: map[int]string{1: "u3"}})
	assert.ErrorIs(t, err, domain.ErrPrizesAlreadyAwarded)
	assert.Equal(t, domain.KindFailedPrecondition, domain.KindOf(err))
	assert.Empty(t, s.Titles("u3"))
}

func TestAwardPrizes_Refusals(t *testing.T) {
	ctx := context.Background()
	admin := &domain.Caller{UserID: "admin"}

	tests := []struct {
		name   string
		setup  func(s *memstore.Store)
		caller *domain.Caller
		req    AwardRequest
		want   error
	}{
		{
			name:   "unauthenticated",
			caller: nil,
			req:    AwardRequest{TournamentID: "t1", Winners: map[int]string{1: "u1"}},
			want:   domain.ErrUnauthenticated,
		},
		{
			name:   "no winners",
			caller: admin,
			req:    AwardRequest{TournamentID: "t1"},
			want:   domain.ErrInvalidArgument,
		},
		{
			name:   "rank zero",
			caller: admin,
			req:    AwardRequest{TournamentID: "t1", Winners: map[int]string{0: "u1"}},
			want:   domain.ErrInvalidArgument,
		},
		{
			name:   "missing tournament",
			caller: admin,
			req:    AwardRequest{TournamentID: "nope", Winners: map[int]string{1: "u1"}},
			want:   domain.ErrTournamentNotFound,
		},
		{
			name: "no prize configuration",
			setup: func(s *memstore.Store) {
				s.PutTournament(domain.Tournament{ID: "bare", Status: domain.StatusJudging})
			},
			caller: admin,
			req:    AwardRequest{TournamentID: "bare", Winners: map[int]string{1: "u1"}},
			want:   domain.ErrNoPrizeConfiguration,
		},
		{
			name:   "rank without a prize",
			caller: admin,
			req:    AwardRequest{TournamentID: "t1", Winners: map[int]string{1: "u1", 3: "u3"}},
			want:   domain.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memstore.New()
			seed(s, domain.ScoringRule{Metric: domain.MetricSize})
			if tt.setup != nil {
				tt.setup(s)
			}
			svc := newTestService(s)

			_, err := svc.AwardPrizes(ctx, tt.caller, tt.req)
			assert.ErrorIs(t, err, tt.want)

			tour, _ := s.GetTournament(ctx, "t1")
			assert.False(t, tour.PrizesAwarded)
			assert.Empty(t, s.Titles("u1"))
		})
	}
}

type stubStandings struct {
	entries []domain.RankingEntry
	err     error
	limit   int
}

func (c *stubStandings) TopStandings(ctx context.Context, tournamentID string, limit int) ([]domain.RankingEntry, error) {
	c.limit = limit
	return c.entries, c.err
}

func TestStandings(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seed(s, domain.ScoringRule{Metric: domain.MetricSize})
	svc := newTestService(s)

	s.PutSubmission(sub("a", "u1", domain.SubmissionApproved, 15, clock))
	s.PutSubmission(sub("b", "u2", domain.SubmissionApproved, 30, clock))
	s.PutSubmission(sub("c", "u3", domain.SubmissionApproved, 20, clock))
	_, err := svc.RecalculateRankings(ctx, &domain.Caller{UserID: "admin"}, "t1")
	require.NoError(t, err)

	t.Run("store fallback uses the default limit", func(t *testing.T) {
		entries, err := svc.Standings(ctx, "t1", 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "u2", entries[0].UserID)
		assert.Equal(t, "u3", entries[1].UserID)
	})

	t.Run("limit is capped", func(t *testing.T) {
		entries, err := svc.Standings(ctx, "t1", 50)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("cache hit", func(t *testing.T) {
		one := 1
		cache := &stubStandings{entries: []domain.RankingEntry{{UserID: "cached", Rank: &one}}}
		svc.SetStandingsReader(cache)
		defer svc.SetStandingsReader(nil)

		entries, err := svc.Standings(ctx, "t1", 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "cached", entries[0].UserID)
		assert.Equal(t, 3, cache.limit)
	})

	t.Run("cache error falls back", func(t *testing.T) {
		svc.SetStandingsReader(&stubStandings{err: errors.New("redis down")})
		defer svc.SetStandingsReader(nil)

		entries, err := svc.Standings(ctx, "t1", 3)
		require.NoError(t, err)
		assert.Len(t, entries, 3)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		_, err := svc.Standings(ctx, "nope", 3)
		assert.ErrorIs(t, err, domain.ErrTournamentNotFound)
	})
}

func TestRecalculateEngagementTournaments(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := newTestService(s)

	engagement := domain.ScoringRule{Metric: domain.MetricEngagement, Aggregation: domain.AggregationSum}
	s.PutTournament(domain.Tournament{ID: "live", Rule: engagement, Status: domain.StatusOngoing})
	s.PutTournament(domain.Tournament{ID: "judging", Rule: engagement, Status: domain.StatusJudging})
	s.PutTournament(domain.Tournament{ID: "done", Rule: engagement, Status: domain.StatusFinished})
	s.PutTournament(domain.Tournament{ID: "size", Rule: domain.ScoringRule{Metric: domain.MetricSize}, Status: domain.StatusOngoing})

	for _, tid := range []string{"live", "judging", "done", "size"} {
		s.PutSubmission(domain.Submission{ID: "x", TournamentID: tid, UserID: "u1", Status: domain.SubmissionApproved, LikeCount: 7, JudgedSize: 1})
		s.PutSubmission(domain.Submission{ID: "y", TournamentID: tid, UserID: "u1", Status: domain.SubmissionApproved, LikeCount: 5, JudgedSize: 1})
	}

	n, err := svc.RecalculateEngagementTournaments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, tid := range []string{"live", "judging"} {
		e, ok := s.RankingEntry(tid, "u1")
		require.True(t, ok, tid)
		assert.Equal(t, float64(12), e.Score, tid)
	}
	for _, tid := range []string{"done", "size"} {
		_, ok := s.RankingEntry(tid, "u1")
		assert.False(t, ok, tid)
	}
}

func TestRunLifecycleScan(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := newTestService(s)

	s.PutTournament(domain.Tournament{ID: "a", Status: domain.StatusPending, StartDate: clock.Add(-time.Hour)})
	s.PutTournament(domain.Tournament{ID: "b", Status: domain.StatusOngoing, EndDate: clock.Add(-time.Hour)})

	res, err := svc.RunLifecycleScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, res.Started)
	assert.Equal(t, []string{"b"}, res.Judging)
}
