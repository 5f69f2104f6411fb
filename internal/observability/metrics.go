package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	matchProposalsTotal      *prometheus.CounterVec
	matchBatchSeconds        prometheus.Histogram
	evaluationsTotal         *prometheus.CounterVec
	evaluationSentinelsTotal prometheus.Counter
	manualGradesTotal        prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the grading pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		matchProposalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sara",
			Subsystem: "matching",
			Name:      "proposals_total",
			Help:      "Total matching proposals produced, labeled by status.",
		}, []string{"status"})

		matchBatchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sara",
			Subsystem: "matching",
			Name:      "batch_seconds",
			Help:      "Wall time spent matching one uploaded batch.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		})

		evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sara",
			Subsystem: "grading",
			Name:      "evaluations_total",
			Help:      "Total submission evaluations, labeled by outcome.",
		}, []string{"status"})

		evaluationSentinelsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sara",
			Subsystem: "grading",
			Name:      "sentinel_results_total",
			Help:      "Criterion evaluations that fell back to the sentinel result.",
		})

		manualGradesTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sara",
			Subsystem: "grading",
			Name:      "manual_grades_total",
			Help:      "Manual grade overrides recorded by instructors.",
		})

		prometheus.MustRegister(
			matchProposalsTotal,
			matchBatchSeconds,
			evaluationsTotal,
			evaluationSentinelsTotal,
			manualGradesTotal,
		)
	})
}

// MatchProposals exposes the proposal counter.
func MatchProposals() *prometheus.CounterVec {
	RegisterMetrics()
	return matchProposalsTotal
}

// MatchBatchDuration exposes the batch matching histogram.
func MatchBatchDuration() prometheus.Histogram {
	RegisterMetrics()
	return matchBatchSeconds
}

// Evaluations exposes the evaluation outcome counter.
func Evaluations() *prometheus.CounterVec {
	RegisterMetrics()
	return evaluationsTotal
}

// EvaluationSentinels exposes the sentinel fallback counter.
func EvaluationSentinels() prometheus.Counter {
	RegisterMetrics()
	return evaluationSentinelsTotal
}

// ManualGrades exposes the manual override counter.
func ManualGrades() prometheus.Counter {
	RegisterMetrics()
	return manualGradesTotal
}
