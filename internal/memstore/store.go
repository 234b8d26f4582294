// Package memstore is an in-memory document store for local runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

type entryKey struct {
	tournamentID string
	userID       string
}

type submissionKey struct {
	tournamentID string
	submissionID string
}

// Store keeps every collection in maps guarded by one mutex, so each
// method is atomic in the same way a store transaction is.
type Store struct {
	mu             sync.RWMutex
	tournaments    map[string]domain.Tournament
	submissions    map[submissionKey]domain.Submission
	users          map[string]domain.UserProfile
	rankings       map[entryKey]domain.RankingEntry
	participants   map[entryKey]domain.ParticipationEntry
	processedEntry map[entryKey]struct{}
	processedPosts map[string]struct{}
	titles         map[string][]domain.AwardedTitle
}

// New creates an empty store
func New() *Store {
	return &Store{
		tournaments:    make(map[string]domain.Tournament),
		submissions:    make(map[submissionKey]domain.Submission),
		users:          make(map[string]domain.UserProfile),
		rankings:       make(map[entryKey]domain.RankingEntry),
		participants:   make(map[entryKey]domain.ParticipationEntry),
		processedEntry: make(map[entryKey]struct{}),
		processedPosts: make(map[string]struct{}),
		titles:         make(map[string][]domain.AwardedTitle),
	}
}

// PutTournament inserts or replaces a tournament
func (s *Store) PutTournament(t domain.Tournament) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.Prizes = append([]domain.Prize(nil), t.Prizes...)
	s.tournaments[t.ID] = t
}

// PutSubmission inserts or replaces a submission
func (s *Store) PutSubmission(sub domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[submissionKey{sub.TournamentID, sub.ID}] = sub
}

// DeleteSubmission removes a submission
func (s *Store) DeleteSubmission(tournamentID, submissionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submissions, submissionKey{tournamentID, submissionID})
}

// PutUser inserts or replaces a user profile
func (s *Store) PutUser(u domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutParticipationEntry inserts or replaces a participation entry
func (s *Store) PutParticipationEntry(e domain.ParticipationEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.CurrentRank = copyRank(e.CurrentRank)
	s.participants[entryKey{e.TournamentID, e.UserID}] = e
}

// RankingEntry returns the ranking entry of a user
func (s *Store) RankingEntry(tournamentID, userID string) (domain.RankingEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rankings[entryKey{tournamentID, userID}]
	e.Rank = copyRank(e.Rank)
	return e, ok
}

// Titles returns the titles awarded to a user
func (s *Store) Titles(userID string) []domain.AwardedTitle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AwardedTitle(nil), s.titles[userID]...)
}

// GetTournament retrieves a tournament by ID
func (s *Store) GetTournament(ctx context.Context, id string) (*domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("tournament %s: %w", id, domain.ErrTournamentNotFound)
	}
	t.Prizes = append([]domain.Prize(nil), t.Prizes...)
	return &t, nil
}

// ListTournaments returns the tournaments passing filter, ordered by ID
func (s *Store) ListTournaments(ctx context.Context, filter domain.TournamentFilter) ([]domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Tournament
	for _, t := range s.tournaments {
		if filter.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateTournamentStatus moves a tournament from one status to the next.
// It reports false without writing when the stored status is not from.
func (s *Store) UpdateTournamentStatus(ctx context.Context, id string, from, to domain.TournamentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[id]
	if !ok {
		return false, fmt.Errorf("tournament %s: %w", id, domain.ErrTournamentNotFound)
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	s.tournaments[id] = t
	return true, nil
}

// GetSubmission retrieves one submission
func (s *Store) GetSubmission(ctx context.Context, tournamentID, submissionID string) (*domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[submissionKey{tournamentID, submissionID}]
	if !ok {
		return nil, fmt.Errorf("submission %s: %w", submissionID, domain.ErrSubmissionNotFound)
	}
	return &sub, nil
}

// ListSubmissions returns a tournament's submissions passing filter, ordered by ID
func (s *Store) ListSubmissions(ctx context.Context, tournamentID string, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Submission
	for k, sub := range s.submissions {
		if k.tournamentID == tournamentID && filter.Matches(sub) {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetSubmissionStatus sets the status of several submissions at once
func (s *Store) SetSubmissionStatus(ctx context.Context, tournamentID string, ids []string, status domain.SubmissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.submissions[submissionKey{tournamentID, id}]; !ok {
			return fmt.Errorf("submission %s: %w", id, domain.ErrSubmissionNotFound)
		}
	}
	now := time.Now()
	for _, id := range ids {
		k := submissionKey{tournamentID, id}
		sub := s.submissions[k]
		sub.Status = status
		sub.UpdatedAt = now
		s.submissions[k] = sub
	}
	return nil
}

// GetUserProfile retrieves a user profile
func (s *Store) GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, domain.ErrUserNotFound)
	}
	return &u, nil
}

// ListRankingEntries returns every ranking entry of a tournament, ordered by user ID
func (s *Store) ListRankingEntries(ctx context.Context, tournamentID string) ([]domain.RankingEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.RankingEntry
	for k, e := range s.rankings {
		if k.tournamentID == tournamentID {
			e.Rank = copyRank(e.Rank)
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// GetParticipationEntry retrieves a user's participation entry
func (s *Store) GetParticipationEntry(ctx context.Context, tournamentID, userID string) (*domain.ParticipationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.participants[entryKey{tournamentID, userID}]
	if !ok {
		return nil, fmt.Errorf("participant %s: %w", userID, domain.ErrEntryNotFound)
	}
	e.CurrentRank = copyRank(e.CurrentRank)
	return &e, nil
}

// UpsertScore writes the score to the ranking and the participation entry together.
// Existing ranks are left for the next reorder.
func (s *Store) UpsertScore(ctx context.Context, u domain.ScoreUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := entryKey{u.TournamentID, u.UserID}

	r := s.rankings[k]
	r.TournamentID = u.TournamentID
	r.UserID = u.UserID
	r.Author = u.Author
	r.Score = u.Score
	r.AchievedAt = u.AchievedAt
	r.UpdatedAt = u.UpdatedAt
	s.rankings[k] = r

	p, ok := s.participants[k]
	if !ok {
		p.ParticipatedAt = u.UpdatedAt
	}
	p.TournamentID = u.TournamentID
	p.UserID = u.UserID
	p.Author = u.Author
	p.CurrentScore = u.Score
	p.SubmissionCount = u.SubmissionCount
	p.BestSubmissionID = u.BestSubmissionID
	p.UpdatedAt = u.UpdatedAt
	s.participants[k] = p
	return nil
}

// ApplyRanks writes every rank to both entry collections and stamps the tournament
func (s *Store) ApplyRanks(ctx context.Context, tournamentID string, ranks []domain.RankAssignment, reconciledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
	}

	for _, ra := range ranks {
		k := entryKey{tournamentID, ra.UserID}
		rank := ra.Rank

		r := s.rankings[k]
		r.TournamentID, r.UserID = tournamentID, ra.UserID
		r.Rank = &rank
		r.UpdatedAt = reconciledAt
		s.rankings[k] = r

		p, ok := s.participants[k]
		if !ok {
			p.ParticipatedAt = reconciledAt
		}
		p.TournamentID, p.UserID = tournamentID, ra.UserID
		p.CurrentRank = copyRank(&rank)
		p.UpdatedAt = reconciledAt
		s.participants[k] = p
	}

	stamp := reconciledAt
	t.LastReconciledAt = &stamp
	s.tournaments[tournamentID] = t
	return nil
}

// IncrementParticipantCount counts a user once per tournament.
// It reports false when the user was already counted.
func (s *Store) IncrementParticipantCount(ctx context.Context, tournamentID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return false, fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
	}
	k := entryKey{tournamentID, userID}
	if _, done := s.processedEntry[k]; done {
		return false, nil
	}
	s.processedEntry[k] = struct{}{}
	t.ParticipantCount++
	s.tournaments[tournamentID] = t
	return true, nil
}

// AwardPrizes grants titles and finishes the tournament in one step
func (s *Store) AwardPrizes(ctx context.Context, tournamentID string, titles []domain.AwardedTitle, awardedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[tournamentID]
	if !ok {
		return fmt.Errorf("tournament %s: %w", tournamentID, domain.ErrTournamentNotFound)
	}
	if t.PrizesAwarded {
		return domain.ErrPrizesAlreadyAwarded
	}

	for _, title := range titles {
		s.titles[title.UserID] = append(s.titles[title.UserID], title)
	}
	t.PrizesAwarded = true
	t.Status = domain.StatusFinished
	t.UpdatedAt = awardedAt
	s.tournaments[tournamentID] = t
	return nil
}

// RecordCatch applies a new post to the author's stats once per post ID
func (s *Store) RecordCatch(ctx context.Context, evt domain.PostCreatedEvent, apply func(domain.AnglerStats) domain.AnglerStats) (*domain.AnglerStats, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[evt.UserID]
	if !ok {
		return nil, false, fmt.Errorf("user %s: %w", evt.UserID, domain.ErrUserNotFound)
	}
	if _, done := s.processedPosts[evt.PostID]; done {
		stats := u.Stats
		return &stats, false, nil
	}

	s.processedPosts[evt.PostID] = struct{}{}
	u.Stats = apply(u.Stats)
	u.UpdatedAt = time.Now()
	s.users[evt.UserID] = u
	stats := u.Stats
	return &stats, true, nil
}

func copyRank(r *int) *int {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
