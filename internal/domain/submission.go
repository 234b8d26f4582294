package domain

import "time"

// SubmissionStatus is the judging state of a submission
type SubmissionStatus string

const (
	SubmissionPending     SubmissionStatus = "pending"
	SubmissionApproved    SubmissionStatus = "approved"
	SubmissionOverwritten SubmissionStatus = "overwritten"
)

// Author holds the denormalized display fields copied onto derived documents
type Author struct {
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// Submission is one catch entered into a tournament
type Submission struct {
	ID           string           `json:"id"`
	TournamentID string           `json:"tournament_id"`
	UserID       string           `json:"user_id"`
	Status       SubmissionStatus `json:"status"`
	JudgedSize   float64          `json:"judged_size,omitempty"`
	JudgedCount  int              `json:"judged_count,omitempty"`
	LikeCount    int              `json:"like_count,omitempty"`
	Author       Author           `json:"author"`
	SubmittedAt  time.Time        `json:"submitted_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// IsApproved reports whether the submission currently feeds the score
func (s *Submission) IsApproved() bool {
	return s != nil && s.Status == SubmissionApproved
}

// JudgedValuesEqual reports whether two versions carry the same judged values
func (s *Submission) JudgedValuesEqual(other *Submission) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.JudgedSize == other.JudgedSize && s.JudgedCount == other.JudgedCount
}

// SubmissionFilter selects a tournament's submissions. Empty fields match everything.
type SubmissionFilter struct {
	UserID string
	Status SubmissionStatus
}

// Matches reports whether sub passes the filter
func (f SubmissionFilter) Matches(sub Submission) bool {
	if f.UserID != "" && sub.UserID != f.UserID {
		return false
	}
	if f.Status != "" && sub.Status != f.Status {
		return false
	}
	return true
}
