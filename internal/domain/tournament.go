package domain

import (
	"fmt"
	"time"
)

// Metric is the submission value a tournament ranks by
type Metric string

const (
	MetricSize       Metric = "size"
	MetricCount      Metric = "count"
	MetricEngagement Metric = "engagement"
)

// Aggregation folds a user's submission values into one score
type Aggregation string

const (
	AggregationMax Aggregation = "max"
	AggregationSum Aggregation = "sum"
)

// LimitPolicy controls how many approved submissions a user may hold
type LimitPolicy string

const (
	LimitUnrestricted        LimitPolicy = "unrestricted"
	LimitSingleBestOverwrite LimitPolicy = "single_best_overwrite"
)

// TournamentStatus is the lifecycle phase of a tournament
type TournamentStatus string

const (
	StatusPending  TournamentStatus = "pending"
	StatusOngoing  TournamentStatus = "ongoing"
	StatusJudging  TournamentStatus = "judging"
	StatusFinished TournamentStatus = "finished"
)

// CanTransitionTo reports whether next is the single phase that follows s.
func (s TournamentStatus) CanTransitionTo(next TournamentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusOngoing
	case StatusOngoing:
		return next == StatusJudging
	case StatusJudging:
		return next == StatusFinished
	default:
		return false
	}
}

// ScoringRule describes how submissions turn into a score
type ScoringRule struct {
	Metric      Metric      `json:"metric"`
	Aggregation Aggregation `json:"aggregation,omitempty"`
	LimitPolicy LimitPolicy `json:"limit_policy,omitempty"`
}

// EffectiveAggregation returns the aggregation actually applied for the metric.
// Size always keeps the maximum and count always sums.
func (r ScoringRule) EffectiveAggregation() Aggregation {
	switch r.Metric {
	case MetricSize:
		return AggregationMax
	case MetricCount:
		return AggregationSum
	default:
		return r.Aggregation
	}
}

// Validate rejects rule shapes the score calculator cannot interpret
func (r ScoringRule) Validate() error {
	switch r.Metric {
	case MetricSize:
		if r.Aggregation != "" && r.Aggregation != AggregationMax {
			return fmt.Errorf("%w: size metric cannot use %q aggregation", ErrInvalidRule, r.Aggregation)
		}
	case MetricCount:
		if r.Aggregation != "" && r.Aggregation != AggregationSum {
			return fmt.Errorf("%w: count metric cannot use %q aggregation", ErrInvalidRule, r.Aggregation)
		}
	case MetricEngagement:
		if r.Aggregation != AggregationMax && r.Aggregation != AggregationSum {
			return fmt.Errorf("%w: engagement metric requires max or sum aggregation, got %q", ErrInvalidRule, r.Aggregation)
		}
	default:
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidRule, r.Metric)
	}

	switch r.LimitPolicy {
	case "", LimitUnrestricted, LimitSingleBestOverwrite:
		return nil
	default:
		return fmt.Errorf("%w: unknown limit policy %q", ErrInvalidRule, r.LimitPolicy)
	}
}

// Prize is the award granted to the holder of a final rank
type Prize struct {
	Rank        int    `json:"rank"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Tournament is a time-boxed competition over fishing submissions
type Tournament struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Rule             ScoringRule      `json:"rule"`
	Status           TournamentStatus `json:"status"`
	StartDate        time.Time        `json:"start_date"`
	EndDate          time.Time        `json:"end_date"`
	Prizes           []Prize          `json:"prizes,omitempty"`
	PrizesAwarded    bool             `json:"prizes_awarded"`
	ParticipantCount int64            `json:"participant_count"`
	LastReconciledAt *time.Time       `json:"last_reconciled_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// PrizeFor returns the prize configured for rank
func (t *Tournament) PrizeFor(rank int) (Prize, bool) {
	for _, p := range t.Prizes {
		if p.Rank == rank {
			return p, true
		}
	}
	return Prize{}, false
}

// TournamentFilter selects tournaments by status and metric.
// Empty fields match everything.
type TournamentFilter struct {
	Statuses []TournamentStatus
	Metric   Metric
}

// Matches reports whether t passes the filter
func (f TournamentFilter) Matches(t Tournament) bool {
	if f.Metric != "" && t.Rule.Metric != f.Metric {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if t.Status == s {
			return true
		}
	}
	return false
}
