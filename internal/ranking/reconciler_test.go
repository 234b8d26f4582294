package ranking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/matusita0314/eging-map-app/internal/config"
	"github.com/matusita0314/eging-map-app/internal/domain"
	"github.com/matusita0314/eging-map-app/internal/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))
	day        = time.Date(2026, 7, 10, 5, 0, 0, 0, time.UTC)
)

type recordingCache struct {
	entries     []domain.RankingEntry
	err         error
	invalidated []string
}

func (c *recordingCache) ReplaceStandings(ctx context.Context, tournamentID string, entries []domain.RankingEntry) error {
	c.entries = entries
	return c.err
}

func (c *recordingCache) Invalidate(ctx context.Context, tournamentID string) error {
	c.invalidated = append(c.invalidated, tournamentID)
	return nil
}

type recordingBroadcaster struct {
	calls int
	last  []domain.RankingEntry
}

func (b *recordingBroadcaster) BroadcastStandings(tournamentID string, entries []domain.RankingEntry) {
	b.calls++
	b.last = entries
}

// profileFailingStore fails every profile read
type profileFailingStore struct {
	*memstore.Store
}

func (s profileFailingStore) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	return nil, errors.New("profile backend unavailable")
}

func newReconciler(store Store) *Reconciler {
	r := NewReconciler(store, &config.RankingConfig{PlaceholderName: "Unknown angler"}, nil, testLogger)
	r.now = func() time.Time { return day }
	return r
}

func seedSizeTournament(s *memstore.Store) {
	s.PutTournament(domain.Tournament{
		ID:     "t1",
		Name:   "Autumn Eging Cup",
		Rule:   domain.ScoringRule{Metric: domain.MetricSize, Aggregation: domain.AggregationMax},
		Status: domain.StatusOngoing,
	})
	s.PutUser(domain.UserProfile{ID: "u1", DisplayName: "Aki", PhotoURL: "https://img/aki.png"})
	s.PutUser(domain.UserProfile{ID: "u2", DisplayName: "Ren"})
}

func approved(id, user string, size float64, at time.Time) domain.Submission {
	return domain.Submission{
		ID: id, TournamentID: "t1", UserID: user,
		Status: domain.SubmissionApproved, JudgedSize: size, SubmittedAt: at,
	}
}

func TestRecalculateUserScore(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedSizeTournament(s)
	s.PutSubmission(approved("s1", "u1", 12, day))
	s.PutSubmission(approved("s2", "u1", 27, day.Add(time.Hour)))
	s.PutSubmission(approved("s3", "u1", 19, day.Add(2*time.Hour)))
	s.PutSubmission(domain.Submission{ID: "s4", TournamentID: "t1", UserID: "u1", Status: domain.SubmissionPending, JudgedSize: 40})

	r := newReconciler(s)

	entry, err := r.RecalculateUserScore(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, float64(27), entry.Score)
	assert.Equal(t, "Aki", entry.Author.Name)

	stored, ok := s.RankingEntry("t1", "u1")
	require.True(t, ok)
	assert.Equal(t, float64(27), stored.Score)
	assert.Equal(t, "https://img/aki.png", stored.Author.PhotoURL)

	p, err := s.GetParticipationEntry(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, float64(27), p.CurrentScore)
	assert.Equal(t, 4, p.SubmissionCount)
	assert.Equal(t, "s2", p.BestSubmissionID)

	// idempotent
	_, err = r.RecalculateUserScore(ctx, "t1", "u1")
	require.NoError(t, err)
	again, _ := s.RankingEntry("t1", "u1")
	assert.Equal(t, stored.Score, again.Score)
}

func TestRecalculateUserScore_MissingTournament(t *testing.T) {
	s := memstore.New()
	r := newReconciler(s)

	_, err := r.RecalculateUserScore(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrTournamentNotFound)

	_, ok := s.RankingEntry("missing", "u1")
	assert.False(t, ok)
}

func TestRecalculateUserScore_ProfileFallback(t *testing.T) {
	s := memstore.New()
	seedSizeTournament(s)
	s.PutSubmission(approved("s1", "u1", 20, day))

	r := newReconciler(profileFailingStore{s})

	entry, err := r.RecalculateUserScore(context.Background(), "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Unknown angler", entry.Author.Name)
	assert.Empty(t, entry.Author.PhotoURL)
	assert.Equal(t, float64(20), entry.Score)
}

func TestRecalculateUserScore_InvalidRule(t *testing.T) {
	s := memstore.New()
	s.PutTournament(domain.Tournament{ID: "t1", Rule: domain.ScoringRule{Metric: domain.MetricEngagement}})

	_, err := newReconciler(s).RecalculateUserScore(context.Background(), "t1", "u1")
	assert.ErrorIs(t, err, domain.ErrInvalidRule)
}

func TestReorderRanks(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedSizeTournament(s)
	s.PutUser(domain.UserProfile{ID: "u3", DisplayName: "Sora"})
	s.PutSubmission(approved("a", "u1", 22, day.Add(2*time.Hour)))
	s.PutSubmission(approved("b", "u2", 30, day))
	s.PutSubmission(approved("c", "u3", 22, day.Add(time.Hour)))

	r := newReconciler(s)
	cache := &recordingCache{}
	bc := &recordingBroadcaster{}
	r.SetStandingsCache(cache)
	r.SetBroadcaster(bc)

	for _, u := range []string{"u1", "u2", "u3"} {
		_, err := r.RecalculateUserScore(ctx, "t1", u)
		require.NoError(t, err)
	}

	n, err := r.ReorderRanks(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := map[string]int{"u2": 1, "u3": 2, "u1": 3}
	for user, rank := range want {
		e, ok := s.RankingEntry("t1", user)
		require.True(t, ok)
		require.NotNil(t, e.Rank, user)
		assert.Equal(t, rank, *e.Rank, user)

		p, err := s.GetParticipationEntry(ctx, "t1", user)
		require.NoError(t, err)
		require.NotNil(t, p.CurrentRank)
		assert.Equal(t, rank, *p.CurrentRank, user)
	}

	tour, _ := s.GetTournament(ctx, "t1")
	require.NotNil(t, tour.LastReconciledAt)

	require.Len(t, cache.entries, 3)
	assert.Equal(t, "u2", cache.entries[0].UserID)
	assert.Empty(t, cache.invalidated)
	assert.Equal(t, 1, bc.calls)
	assert.Equal(t, "u1", bc.last[2].UserID)
}

func TestReorderRanks_CacheFailureDoesNotFail(t *testing.T) {
	s := memstore.New()
	seedSizeTournament(s)
	s.PutSubmission(approved("a", "u1", 22, day))

	r := newReconciler(s)
	cache := &recordingCache{err: errors.New("redis down")}
	bc := &recordingBroadcaster{}
	r.SetStandingsCache(cache)
	r.SetBroadcaster(bc)

	_, err := r.RecalculateUserScore(context.Background(), "t1", "u1")
	require.NoError(t, err)
	n, err := r.ReorderRanks(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, []string{"t1"}, cache.invalidated)
	assert.Equal(t, 1, bc.calls)
}

func TestReorderRanks_MissingTournament(t *testing.T) {
	_, err := newReconciler(memstore.New()).ReorderRanks(context.Background(), "nope")
	assert.True(t, domain.IsNotFoundError(err))
}

func TestRecalculateAll_DeletedSoleSubmissionRanksLast(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	seedSizeTournament(s)
	s.PutSubmission(approved("a", "u1", 18, day))
	s.PutSubmission(approved("b", "u2", 25, day))

	r := newReconciler(s)
	n, err := r.RecalculateAll(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	s.DeleteSubmission("t1", "b")
	n, err = r.RecalculateAll(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	gone, _ := s.RankingEntry("t1", "u2")
	assert.Equal(t, float64(0), gone.Score)
	require.NotNil(t, gone.Rank)
	assert.Equal(t, 2, *gone.Rank)

	kept, _ := s.RankingEntry("t1", "u1")
	assert.Equal(t, 1, *kept.Rank)
}

func TestSortEntries(t *testing.T) {
	entries := []domain.RankingEntry{
		{UserID: "zero-time", Score: 10},
		{UserID: "late", Score: 10, AchievedAt: day.Add(time.Hour)},
		{UserID: "top", Score: 40, AchievedAt: day.Add(5 * time.Hour)},
		{UserID: "b-early", Score: 10, AchievedAt: day},
		{UserID: "a-early", Score: 10, AchievedAt: day},
		{UserID: "none", Score: 0},
	}

	SortEntries(entries)

	var got []string
	for _, e := range entries {
		got = append(got, e.UserID)
	}
	assert.Equal(t, []string{"top", "a-early", "b-early", "late", "zero-time", "none"}, got)
}
