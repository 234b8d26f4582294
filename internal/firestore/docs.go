package firestore

import (
	"time"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// Collection and field names shared with the mobile app
const (
	colTournaments      = "tournaments"
	colSubmissions      = "submissions"
	colRankings         = "rankings"
	colParticipants     = "participants"
	colProcessedEntries = "processedEntries"
	colUsers            = "users"
	colTitles           = "titles"
	colProcessedPosts   = "processedPosts"
)

type ruleDoc struct {
	Metric      string `firestore:"metric"`
	Aggregation string `firestore:"aggregation,omitempty"`
	LimitPolicy string `firestore:"limitPolicy,omitempty"`
}

type prizeDoc struct {
	Rank        int    `firestore:"rank"`
	Title       string `firestore:"title"`
	Description string `firestore:"description,omitempty"`
}

type tournamentDoc struct {
	Name             string     `firestore:"name"`
	Rule             ruleDoc    `firestore:"rule"`
	Status           string     `firestore:"status"`
	StartDate        *time.Time `firestore:"startDate"`
	EndDate          *time.Time `firestore:"endDate"`
	Prizes           []prizeDoc `firestore:"prizes"`
	PrizesAwarded    bool       `firestore:"prizesAwarded"`
	ParticipantCount int64      `firestore:"participantCount"`
	LastReconciledAt *time.Time `firestore:"lastReconciledAt"`
	CreatedAt        time.Time  `firestore:"createdAt"`
	UpdatedAt        time.Time  `firestore:"updatedAt"`
}

type submissionDoc struct {
	UserID         string    `firestore:"userId"`
	Status         string    `firestore:"status"`
	JudgedSize     float64   `firestore:"judgedSize"`
	JudgedCount    int       `firestore:"judgedCount"`
	LikeCount      int       `firestore:"likeCount"`
	AuthorName     string    `firestore:"authorName"`
	AuthorPhotoURL string    `firestore:"authorPhotoUrl"`
	SubmittedAt    time.Time `firestore:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt"`
}

type userDoc struct {
	DisplayName  string    `firestore:"displayName"`
	PhotoURL     string    `firestore:"photoUrl"`
	TotalCatches int       `firestore:"totalCatches"`
	MaxSize      float64   `firestore:"maxSize"`
	Rank         string    `firestore:"rank"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type rankingDoc struct {
	AuthorName     string     `firestore:"authorName"`
	AuthorPhotoURL string     `firestore:"authorPhotoUrl"`
	Score          float64    `firestore:"score"`
	Rank           *int       `firestore:"rank"`
	AchievedAt     *time.Time `firestore:"achievedAt"`
	UpdatedAt      time.Time  `firestore:"updatedAt"`
}

type participantDoc struct {
	AuthorName       string    `firestore:"authorName"`
	AuthorPhotoURL   string    `firestore:"authorPhotoUrl"`
	CurrentScore     float64   `firestore:"currentScore"`
	CurrentRank      *int      `firestore:"currentRank"`
	SubmissionCount  int       `firestore:"submissionCount"`
	BestSubmissionID string    `firestore:"bestSubmissionId"`
	ParticipatedAt   time.Time `firestore:"participatedAt"`
	UpdatedAt        time.Time `firestore:"updatedAt"`
}

type titleDoc struct {
	TournamentID   string    `firestore:"tournamentId"`
	TournamentName string    `firestore:"tournamentName"`
	Rank           int       `firestore:"rank"`
	Title          string    `firestore:"title"`
	Description    string    `firestore:"description"`
	AwardedAt      time.Time `firestore:"awardedAt"`
}

func (d tournamentDoc) toDomain(id string) domain.Tournament {
	t := domain.Tournament{
		ID:   id,
		Name: d.Name,
		Rule: domain.ScoringRule{
			Metric:      domain.Metric(d.Rule.Metric),
			Aggregation: domain.Aggregation(d.Rule.Aggregation),
			LimitPolicy: domain.LimitPolicy(d.Rule.LimitPolicy),
		},
		Status:           domain.TournamentStatus(d.Status),
		PrizesAwarded:    d.PrizesAwarded,
		ParticipantCount: d.ParticipantCount,
		LastReconciledAt: d.LastReconciledAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
	if d.StartDate != nil {
		t.StartDate = *d.StartDate
	}
	if d.EndDate != nil {
		t.EndDate = *d.EndDate
	}
	for _, p := range d.Prizes {
		t.Prizes = append(t.Prizes, domain.Prize{Rank: p.Rank, Title: p.Title, Description: p.Description})
	}
	return t
}

func newTournamentDoc(t domain.Tournament) tournamentDoc {
	d := tournamentDoc{
		Name: t.Name,
		Rule: ruleDoc{
			Metric:      string(t.Rule.Metric),
			Aggregation: string(t.Rule.Aggregation),
			LimitPolicy: string(t.Rule.LimitPolicy),
		},
		Status:           string(t.Status),
		StartDate:        optionalTime(t.StartDate),
		EndDate:          optionalTime(t.EndDate),
		PrizesAwarded:    t.PrizesAwarded,
		ParticipantCount: t.ParticipantCount,
		LastReconciledAt: t.LastReconciledAt,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	for _, p := range t.Prizes {
		d.Prizes = append(d.Prizes, prizeDoc{Rank: p.Rank, Title: p.Title, Description: p.Description})
	}
	return d
}

func (d submissionDoc) toDomain(tournamentID, id string) domain.Submission {
	return domain.Submission{
		ID:           id,
		TournamentID: tournamentID,
		UserID:       d.UserID,
		Status:       domain.SubmissionStatus(d.Status),
		JudgedSize:   d.JudgedSize,
		JudgedCount:  d.JudgedCount,
		LikeCount:    d.LikeCount,
		Author:       domain.Author{Name: d.AuthorName, PhotoURL: d.AuthorPhotoURL},
		SubmittedAt:  d.SubmittedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d userDoc) toDomain(id string) domain.UserProfile {
	rank := domain.AnglerRank(d.Rank)
	if rank == "" {
		rank = domain.AnglerBeginner
	}
	return domain.UserProfile{
		ID:          id,
		DisplayName: d.DisplayName,
		PhotoURL:    d.PhotoURL,
		Stats: domain.AnglerStats{
			TotalCatches: d.TotalCatches,
			MaxSize:      d.MaxSize,
			Rank:         rank,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d rankingDoc) toDomain(tournamentID, userID string) domain.RankingEntry {
	e := domain.RankingEntry{
		TournamentID: tournamentID,
		UserID:       userID,
		Author:       domain.Author{Name: d.AuthorName, PhotoURL: d.AuthorPhotoURL},
		Score:        d.Score,
		Rank:         d.Rank,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.AchievedAt != nil {
		e.AchievedAt = *d.AchievedAt
	}
	return e
}

func (d participantDoc) toDomain(tournamentID, userID string) domain.ParticipationEntry {
	return domain.ParticipationEntry{
		TournamentID:     tournamentID,
		UserID:           userID,
		Author:           domain.Author{Name: d.AuthorName, PhotoURL: d.AuthorPhotoURL},
		CurrentScore:     d.CurrentScore,
		CurrentRank:      d.CurrentRank,
		SubmissionCount:  d.SubmissionCount,
		BestSubmissionID: d.BestSubmissionID,
		ParticipatedAt:   d.ParticipatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

// scoreFields is the merge written to a ranking document by UpsertScore
func scoreFields(u domain.ScoreUpdate) map[string]any {
	return map[string]any{
		"authorName":     u.Author.Name,
		"authorPhotoUrl": u.Author.PhotoURL,
		"score":          u.Score,
		"achievedAt":     optionalTime(u.AchievedAt),
		"updatedAt":      u.UpdatedAt,
	}
}

// participantFields is the merge written to a participant document by UpsertScore
func participantFields(u domain.ScoreUpdate, created bool) map[string]any {
	fields := map[string]any{
		"authorName":       u.Author.Name,
		"authorPhotoUrl":   u.Author.PhotoURL,
		"currentScore":     u.Score,
		"submissionCount":  u.SubmissionCount,
		"bestSubmissionId": u.BestSubmissionID,
		"updatedAt":        u.UpdatedAt,
	}
	if created {
		fields["participatedAt"] = u.UpdatedAt
	}
	return fields
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
