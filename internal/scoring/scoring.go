// Package scoring turns a user's approved submissions into a tournament score.
// Everything here is pure: no I/O, no clocks.
package scoring

import (
	"strings"
	"time"

	"github.com/matusita0314/eging-map-app/internal/domain"
)

// Result is the outcome of scoring one user's submissions
type Result struct {
	Score float64
	// AchievedAt is when the score was reached. It orders equal scores.
	AchievedAt       time.Time
	BestSubmissionID string
	// Count is the number of submissions that were scored
	Count int
}

// ComputeScore returns the aggregate score of subs under rule
func ComputeScore(rule domain.ScoringRule, subs []domain.Submission) (float64, error) {
	res, err := Compute(rule, subs)
	if err != nil {
		return 0, err
	}
	return res.Score, nil
}

// Compute scores subs under rule. An empty set scores 0 with a zero AchievedAt.
func Compute(rule domain.ScoringRule, subs []domain.Submission) (Result, error) {
	if err := rule.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{Count: len(subs)}
	best, ok := Best(rule, subs)
	if !ok {
		return res, nil
	}
	res.BestSubmissionID = best.ID

	switch rule.EffectiveAggregation() {
	case domain.AggregationMax:
		res.Score = MetricValue(rule, best)
		res.AchievedAt = best.SubmittedAt
	case domain.AggregationSum:
		for _, s := range subs {
			v := MetricValue(rule, s)
			res.Score += v
			if v != 0 && s.SubmittedAt.After(res.AchievedAt) {
				res.AchievedAt = s.SubmittedAt
			}
		}
	}
	return res, nil
}

// MetricValue returns the value of sub that rule ranks by
func MetricValue(rule domain.ScoringRule, sub domain.Submission) float64 {
	switch rule.Metric {
	case domain.MetricSize:
		return sub.JudgedSize
	case domain.MetricCount:
		return float64(sub.JudgedCount)
	case domain.MetricEngagement:
		return float64(sub.LikeCount)
	default:
		return 0
	}
}

// Best returns the submission with the highest metric value. Ties go to the
// earlier submission, then to the smaller id, so the choice does not depend
// on input order.
func Best(rule domain.ScoringRule, subs []domain.Submission) (domain.Submission, bool) {
	if len(subs) == 0 {
		return domain.Submission{}, false
	}

	best := subs[0]
	for _, s := range subs[1:] {
		if better(rule, s, best) {
			best = s
		}
	}
	return best, true
}

func better(rule domain.ScoringRule, a, b domain.Submission) bool {
	va, vb := MetricValue(rule, a), MetricValue(rule, b)
	if va != vb {
		return va > vb
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return strings.Compare(a.ID, b.ID) < 0
}
