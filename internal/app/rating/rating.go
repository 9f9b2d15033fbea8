// Package rating implements the star rating / difficulty scaler.
// Each core category carries a 1–5 rating that rises on challenge success
// and falls after two consecutive hard failures. All tables live in Config —
// data, not scattered literals.
package rating

import (
	"fmt"
	"math"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/metrics"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// Config is the progression configuration surface.
type Config struct {
	// Multipliers maps star level 1–5 to the baseline scaling multiplier.
	Multipliers map[int]float64

	// XPBase and XPRatio define the reward curve: ceil(XPBase·XPRatio^(L-1)).
	XPBase  float64
	XPRatio float64

	// FirstMonthXP is the fixed reduced reward for first-month challenges.
	FirstMonthXP int

	// SuccessPct and PartialPct bound the progression outcomes:
	// ≥SuccessPct promotes, [PartialPct,SuccessPct) holds, below both fails.
	SuccessPct float64
	PartialPct float64

	// FailuresForDemotion is how many consecutive hard failures demote.
	FailuresForDemotion int

	// HistoryMonths bounds the rating change history.
	HistoryMonths int
}

// DefaultConfig returns the production progression tables.
func DefaultConfig() Config {
	return Config{
		Multipliers: map[int]float64{
			1: 1.05, 2: 1.10, 3: 1.15, 4: 1.20, 5: 1.25,
		},
		XPBase:              500,
		XPRatio:             1.5,
		FirstMonthXP:        400,
		SuccessPct:          100,
		PartialPct:          70,
		FailuresForDemotion: 2,
		HistoryMonths:       12,
	}
}

// ClampLevel clamps a star level into the valid 1–5 range. Levels outside
// the range clamp to the minimum — never an error.
func ClampLevel(level int) int {
	if level < domain.MinRating || level > domain.MaxRating {
		return domain.MinRating
	}
	return level
}

// ApplyStarScaling scales a baseline value by the level's multiplier:
// max(ceil(value·multiplier), level). Non-decreasing in level over 1..5.
// Ceiling is applied to the raw float product on purpose — 100·1.10 lands
// at 110.000…01 and must yield 111.
func (c Config) ApplyStarScaling(value float64, level int) int {
	level = ClampLevel(level)
	target := int(math.Ceil(value * c.Multipliers[level]))
	if target < level {
		target = level
	}
	return target
}

// XPReward returns the reward for a star level: ceil(XPBase·XPRatio^(L-1)).
// For the default tables: 500/750/1125/1688/2532.
func (c Config) XPReward(level int) int {
	level = ClampLevel(level)
	return int(math.Ceil(c.XPBase * math.Pow(c.XPRatio, float64(level-1))))
}

// Outcome is the deterministic result of one progression step.
type Outcome struct {
	NewRating   int
	NewFailures int
	Reason      domain.RatingReason
	Changed     bool
}

// Progress applies the progression rules to one completed cycle.
// Pure and deterministic: identical inputs always yield identical outcomes.
func Progress(cfg Config, current, failures int, completionPct float64, warmUp bool) Outcome {
	current = ClampLevel(current)

	if warmUp {
		// Warm-up challenges record their outcome but never move the
		// rating or the failure counter.
		return Outcome{NewRating: current, NewFailures: failures, Reason: domain.ReasonWarmUp}
	}

	switch {
	case completionPct >= cfg.SuccessPct:
		next := current + 1
		if next > domain.MaxRating {
			next = domain.MaxRating
		}
		return Outcome{NewRating: next, NewFailures: 0, Reason: domain.ReasonSuccess, Changed: next != current}

	case completionPct >= cfg.PartialPct:
		return Outcome{NewRating: current, NewFailures: failures + 1, Reason: domain.ReasonFailure}

	default:
		failures++
		if failures >= cfg.FailuresForDemotion {
			next := current - 1
			if next < domain.MinRating {
				next = domain.MinRating
			}
			return Outcome{NewRating: next, NewFailures: 0, Reason: domain.ReasonDoubleFailure, Changed: next != current}
		}
		return Outcome{NewRating: current, NewFailures: failures, Reason: domain.ReasonFailure}
	}
}

// Service owns rating state and its append-only history.
type Service struct {
	db  *sqlite.DB
	cfg Config
	now func() time.Time
}

// NewService creates a rating service.
func NewService(db *sqlite.DB, cfg Config) *Service {
	return &Service{db: db, cfg: cfg, now: time.Now}
}

// Rating returns the current rating for a category. Unsupported categories
// resolve to the fixed fallback rating, never an error.
func (s *Service) Rating(c domain.Category) (domain.CategoryStarRating, error) {
	if !c.Valid() || !c.Core() {
		return domain.CategoryStarRating{Category: c, Rating: domain.MinRating}, nil
	}
	return s.db.GetRating(c)
}

// Update applies one challenge-cycle outcome to a category's rating and
// appends a history event. The rating invariant 1 ≤ r ≤ 5 holds on every
// path, including the unsupported-category fallback.
func (s *Service) Update(month string, category domain.Category, completionPct float64, warmUp bool) (domain.RatingChangeEvent, error) {
	now := s.now()

	if !category.Valid() || !category.Core() {
		// Extension categories stay on the fixed fallback path.
		event := domain.RatingChangeEvent{
			Month:          month,
			Category:       category,
			PreviousRating: domain.MinRating,
			NewRating:      domain.MinRating,
			CompletionPct:  completionPct,
			Reason:         domain.ReasonFailure,
			Timestamp:      now,
		}
		if err := s.db.AppendRatingEvent(event); err != nil {
			return event, fmt.Errorf("append rating event: %w", err)
		}
		return event, nil
	}

	current, err := s.db.GetRating(category)
	if err != nil {
		return domain.RatingChangeEvent{}, fmt.Errorf("get rating: %w", err)
	}

	out := Progress(s.cfg, current.Rating, current.ConsecutiveFailures, completionPct, warmUp)

	event := domain.RatingChangeEvent{
		Month:          month,
		Category:       category,
		PreviousRating: current.Rating,
		NewRating:      out.NewRating,
		CompletionPct:  completionPct,
		Reason:         out.Reason,
		Timestamp:      now,
	}

	updated := domain.CategoryStarRating{
		Category:            category,
		Rating:              out.NewRating,
		ConsecutiveFailures: out.NewFailures,
		UpdatedAt:           now,
	}
	if err := s.db.PutRating(updated); err != nil {
		return event, fmt.Errorf("put rating: %w", err)
	}
	if err := s.db.AppendRatingEvent(event); err != nil {
		return event, fmt.Errorf("append rating event: %w", err)
	}

	// Keep the history bounded to the configured retention window.
	cutoff := monthsBefore(month, s.cfg.HistoryMonths)
	if _, err := s.db.TrimRatingHistory(cutoff); err != nil {
		return event, fmt.Errorf("trim rating history: %w", err)
	}

	metrics.RatingChanges.WithLabelValues(string(category), string(out.Reason)).Inc()
	metrics.CurrentRating.WithLabelValues(string(category)).Set(float64(out.NewRating))

	return event, nil
}

// monthsBefore returns the month key n months before the given month.
// Malformed input falls back to the month itself (nothing is trimmed).
func monthsBefore(month string, n int) string {
	t, err := time.Parse(domain.MonthFormat, month)
	if err != nil {
		return month
	}
	return t.AddDate(0, -n, 0).Format(domain.MonthFormat)
}
