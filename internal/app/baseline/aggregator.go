// Package baseline implements the activity baseline aggregator.
// It turns per-day activity counts into an immutable UserActivityBaseline
// snapshot used to calibrate challenge difficulty.
package baseline

import (
	"fmt"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/cache"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// Data-quality thresholds in active days.
const (
	minimalBelow  = 5  // <5 active days → minimal
	completeAbove = 20 // ≥20 active days → complete
	firstMonthMax = 15 // <15 active days → first month
)

// DefaultWindowDays is the default analysis window length.
const DefaultWindowDays = 31

// Aggregator computes baselines over a trailing activity window.
// Full-window aggregates are cached with a bounded TTL and invalidated on
// any write to the daily records.
type Aggregator struct {
	db         *sqlite.DB
	cache      *cache.Cache
	windowDays int
	now        func() time.Time
}

// NewAggregator creates an aggregator. windowDays ≤ 0 uses the default.
func NewAggregator(db *sqlite.DB, c *cache.Cache, windowDays int) *Aggregator {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return &Aggregator{db: db, cache: c, windowDays: windowDays, now: time.Now}
}

// RecordActivity writes one day of upstream counts and invalidates cached
// aggregates.
func (a *Aggregator) RecordActivity(rec domain.DailyActivityRecord) error {
	if _, err := time.Parse(domain.DayFormat, rec.Day); err != nil {
		return fmt.Errorf("parse day %q: %w", rec.Day, err)
	}
	if err := a.db.UpsertDailyActivity(rec); err != nil {
		return fmt.Errorf("upsert daily activity: %w", err)
	}
	a.cache.InvalidateAll()
	return nil
}

// BaselineFor computes the baseline for the window ending at `end`
// (inclusive). Results are cached per window end day.
func (a *Aggregator) BaselineFor(end time.Time) (domain.UserActivityBaseline, error) {
	endDay := end.Format(domain.DayFormat)
	key := fmt.Sprintf("baseline:%s:%d", endDay, a.windowDays)

	if v, ok := a.cache.Get(key); ok {
		if b, ok := v.(domain.UserActivityBaseline); ok {
			return b, nil
		}
	}

	startDay := end.AddDate(0, 0, -(a.windowDays - 1)).Format(domain.DayFormat)
	records, err := a.db.ListDailyActivity(startDay, endDay)
	if err != nil {
		return domain.UserActivityBaseline{}, fmt.Errorf("list daily activity: %w", err)
	}

	hasPrior, err := a.db.HasAnyBaseline()
	if err != nil {
		return domain.UserActivityBaseline{}, fmt.Errorf("check prior baseline: %w", err)
	}

	b := Compute(records, startDay, endDay, a.windowDays, hasPrior)
	b.GeneratedAt = a.now()

	a.cache.Set(key, b)
	return b, nil
}

// Compute derives a baseline from the window's records. Pure function.
// Averages divide by the window length — inactive days count as zero, so
// fewer zero days raise the average even with flat per-active-day behavior.
// Zero active days never divides by zero: averages are 0, quality minimal.
func Compute(records []domain.DailyActivityRecord, windowStart, windowEnd string, windowDays int, hasPrior bool) domain.UserActivityBaseline {
	b := domain.UserActivityBaseline{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		WindowDays:  windowDays,
	}

	var uniqueSum int
	for _, r := range records {
		b.TotalHabitCompletions += r.HabitCompletions
		b.TotalJournalEntries += r.JournalEntries
		b.TotalJournalChars += r.JournalChars
		b.TotalGoalEvents += r.GoalProgressEvents
		b.TotalGoalsCompleted += r.GoalsCompleted
		uniqueSum += r.UniqueHabits

		if r.HabitCompletions > 0 {
			b.HabitActiveDays++
		}
		if r.JournalEntries > 0 {
			b.JournalActiveDays++
		}
		if r.GoalProgressEvents > 0 {
			b.GoalActiveDays++
		}
		if r.Active() {
			b.ActiveDays++
		}
	}

	if windowDays > 0 {
		days := float64(windowDays)
		b.AvgHabitsPerDay = float64(b.TotalHabitCompletions) / days
		b.AvgUniqueHabitsPerDay = float64(uniqueSum) / days
		b.AvgJournalPerDay = float64(b.TotalJournalEntries) / days
		b.AvgJournalCharsPerDay = float64(b.TotalJournalChars) / days
		b.AvgGoalEventsPerDay = float64(b.TotalGoalEvents) / days
	}

	switch {
	case b.ActiveDays < minimalBelow:
		b.DataQuality = domain.QualityMinimal
	case b.ActiveDays < completeAbove:
		b.DataQuality = domain.QualityPartial
	default:
		b.DataQuality = domain.QualityComplete
	}

	b.IsFirstMonth = b.ActiveDays < firstMonthMax || !hasPrior
	b.BalanceScore = balanceScore(b.HabitActiveDays, b.JournalActiveDays, b.GoalActiveDays)

	return b
}

// balanceScore measures how evenly activity spreads across the three
// features: 1 − (maxShare − minShare) over active-day shares. Perfectly even
// usage scores 1, single-feature usage approaches 1/3 of the mass gap, and
// zero activity scores 0. Monotonic in evenness, bounded to [0,1].
func balanceScore(habitDays, journalDays, goalDays int) float64 {
	total := habitDays + journalDays + goalDays
	if total == 0 {
		return 0
	}

	shares := []float64{
		float64(habitDays) / float64(total),
		float64(journalDays) / float64(total),
		float64(goalDays) / float64(total),
	}
	minShare, maxShare := shares[0], shares[0]
	for _, s := range shares[1:] {
		if s < minShare {
			minShare = s
		}
		if s > maxShare {
			maxShare = s
		}
	}
	return 1 - (maxShare - minShare)
}
