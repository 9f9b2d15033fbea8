// Package metrics provides Prometheus metrics for the progression engine —
// counters, gauges, and histograms for generation, ratings, lifecycle, and
// streaks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Challenge Generation ───────────────────────────────────────────────────

// ChallengesGenerated counts generated challenges by category and target
// method.
var ChallengesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "challenges_generated_total",
	Help:      "Total monthly challenges generated.",
}, []string{"category", "method"})

// GenerationLatency tracks challenge generation duration in seconds.
var GenerationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "habitloop",
	Name:      "challenge_generation_seconds",
	Help:      "Challenge generation duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
})

// ─── Ratings ────────────────────────────────────────────────────────────────

// RatingChanges counts rating updates by category and reason.
var RatingChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "rating_changes_total",
	Help:      "Total star rating updates.",
}, []string{"category", "reason"})

// CurrentRating exposes the current star rating per category.
var CurrentRating = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "habitloop",
	Name:      "rating_current",
	Help:      "Current star rating per category.",
}, []string{"category"})

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// LifecycleTransitions counts state machine transitions.
var LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "lifecycle_transitions_total",
	Help:      "Total lifecycle transitions.",
}, []string{"from", "to"})

// LifecycleErrors counts errors logged by the state machine.
var LifecycleErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "habitloop",
	Name:      "lifecycle_errors_total",
	Help:      "Total lifecycle errors logged.",
})

// ─── Streaks ────────────────────────────────────────────────────────────────

// CurrentStreak exposes the current consistency streak length in days.
var CurrentStreak = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "habitloop",
	Name:      "streak_current_days",
	Help:      "Current consistency streak in days.",
})

// LongestStreak exposes the longest streak watermark.
var LongestStreak = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "habitloop",
	Name:      "streak_longest_days",
	Help:      "Longest consistency streak watermark in days.",
})
