// Package metrics exposes Prometheus collectors for the event handlers and jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eging"

// Event outcomes
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Metrics holds the application collectors. A nil *Metrics records nothing.
type Metrics struct {
	eventsProcessed      *prometheus.CounterVec
	reconciliations      *prometheus.CounterVec
	lifecycleTransitions *prometheus.CounterVec
	reorderDuration      prometheus.Histogram
	submissionsOverwrite prometheus.Counter
}

// New registers the collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		eventsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Change events handled, by event type and outcome.",
		}, []string{"type", "outcome"}),
		reconciliations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "score_reconciliations_total",
			Help:      "User score recalculations, by outcome.",
		}, []string{"outcome"}),
		lifecycleTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournament_transitions_total",
			Help:      "Tournament status transitions applied.",
		}, []string{"from", "to"}),
		reorderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_reorder_duration_seconds",
			Help:      "Time taken to re-derive the ranks of a tournament.",
			Buckets:   prometheus.DefBuckets,
		}),
		submissionsOverwrite: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_overwritten_total",
			Help:      "Approved submissions superseded by a better one.",
		}),
	}
}

// EventProcessed counts one handled change event
func (m *Metrics) EventProcessed(eventType, outcome string) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(eventType, outcome).Inc()
}

// Reconciled counts one user score recalculation
func (m *Metrics) Reconciled(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.reconciliations.WithLabelValues(outcome).Inc()
}

// Transitioned counts one tournament status change
func (m *Metrics) Transitioned(from, to string) {
	if m == nil {
		return
	}
	m.lifecycleTransitions.WithLabelValues(from, to).Inc()
}

// ObserveReorder records how long a rank reorder took
func (m *Metrics) ObserveReorder(d time.Duration) {
	if m == nil {
		return
	}
	m.reorderDuration.Observe(d.Seconds())
}

// Overwritten counts superseded submissions
func (m *Metrics) Overwritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.submissionsOverwrite.Add(float64(n))
}
