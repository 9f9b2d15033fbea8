package domain

import "time"

// ─── Star Rating Types ──────────────────────────────────────────────────────

// Rating bounds. The invariant 1 ≤ rating ≤ 5 holds at all times.
const (
	MinRating = 1
	MaxRating = 5
)

// RatingReason explains why a rating changed (or stayed put).
type RatingReason string

const (
	ReasonSuccess       RatingReason = "success"        // Completion ≥ success threshold
	ReasonFailure       RatingReason = "failure"        // Below threshold, counter still building
	ReasonDoubleFailure RatingReason = "double_failure" // Second consecutive hard failure — demoted
	ReasonWarmUp        RatingReason = "warm_up"        // Warm-up challenge: outcome recorded, rating untouched
)

// CategoryStarRating is the per-category difficulty tier. Mutated only by
// the progression algorithm.
type CategoryStarRating struct {
	Category            Category  `json:"category"`
	Rating              int       `json:"rating"` // 1–5
	ConsecutiveFailures int       `json:"consecutive_failures"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// RatingChangeEvent is one append-only history entry. History is trimmed to
// the trailing twelve months.
type RatingChangeEvent struct {
	Month          string       `json:"month"` // MonthFormat
	Category       Category     `json:"category"`
	PreviousRating int          `json:"previous_rating"`
	NewRating      int          `json:"new_rating"`
	CompletionPct  float64      `json:"completion_pct"`
	Reason         RatingReason `json:"reason"`
	Timestamp      time.Time    `json:"timestamp"`
}

// Trend summarizes rating movement over the trailing three months.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// RatingReport is the analysis snapshot over the four core categories.
type RatingReport struct {
	Ratings   map[Category]int `json:"ratings"`
	Overall   float64          `json:"overall"` // Mean of core ratings
	Strongest Category         `json:"strongest"`
	Weakest   Category         `json:"weakest"`
	Trend     Trend            `json:"trend"`
	LifetimeXP int             `json:"lifetime_xp"`
}
