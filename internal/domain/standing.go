package domain

import "time"

// RankingEntry is the cached leaderboard row for one user in one tournament
type RankingEntry struct {
	TournamentID string    `json:"tournament_id"`
	UserID       string    `json:"user_id"`
	Author       Author    `json:"author"`
	Score        float64   `json:"score"`
	Rank         *int      `json:"rank"`
	AchievedAt   time.Time `json:"achieved_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ParticipationEntry mirrors a user's standing for reads scoped to that user
type ParticipationEntry struct {
	TournamentID     string    `json:"tournament_id"`
	UserID           string    `json:"user_id"`
	Author           Author    `json:"author"`
	CurrentScore     float64   `json:"current_score"`
	CurrentRank      *int      `json:"current_rank"`
	SubmissionCount  int       `json:"submission_count"`
	BestSubmissionID string    `json:"best_submission_id,omitempty"`
	ParticipatedAt   time.Time `json:"participated_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ScoreUpdate is written to both the ranking and the participation entry at once
type ScoreUpdate struct {
	TournamentID     string
	UserID           string
	Author           Author
	Score            float64
	AchievedAt       time.Time
	SubmissionCount  int
	BestSubmissionID string
	UpdatedAt        time.Time
}

// RankAssignment pairs a user with a dense rank
type RankAssignment struct {
	UserID string
	Rank   int
}

// AwardedTitle is the per-user record granted by a prize award
type AwardedTitle struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	TournamentID   string    `json:"tournament_id"`
	TournamentName string    `json:"tournament_name"`
	Rank           int       `json:"rank"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	AwardedAt      time.Time `json:"awarded_at"`
}
