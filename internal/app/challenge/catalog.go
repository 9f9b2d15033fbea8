// Package challenge implements template selection and monthly challenge
// generation. Targets are scaled from the activity baseline and the
// category's star rating.
package challenge

import "github.com/habitloop/habitloop/internal/domain"

// Tracking keys used by challenge requirements. Progress tracking maps
// month-to-date activity onto these keys.
const (
	TrackHabitCompletions = "habit_completions"
	TrackUniqueHabits     = "unique_habits"
	TrackHabitDays        = "habit_days"
	TrackJournalEntries   = "journal_entries"
	TrackJournalChars     = "journal_chars"
	TrackJournalDays      = "journal_days"
	TrackGoalEvents       = "goal_events"
	TrackGoalsCompleted   = "goals_completed"
	TrackActiveDays       = "active_days"
)

// FirstMonthTemplateID is the reduced-difficulty template preferred for a
// user's first month. Its outcome never affects star progression.
const FirstMonthTemplateID = "first_month_special"

var defaultMilestones = []float64{0.25, 0.50, 0.75}

// Catalog returns the static challenge template catalog: four templates per
// core category plus the first-month special. Immutable at runtime — callers
// must not modify the returned slice.
func Catalog() []domain.ChallengeTemplate {
	anyQuality := []domain.DataQuality{}
	solid := []domain.DataQuality{domain.QualityPartial, domain.QualityComplete}
	full := []domain.DataQuality{domain.QualityComplete}

	return []domain.ChallengeTemplate{
		// ── Habits ─────────────────────────────────────────────────────
		{
			ID: "habits_monthly_volume", Category: domain.CategoryHabits,
			Title:          "Complete more habits than your monthly average",
			BaselineMetric: domain.MetricHabitsTotal, FallbackTarget: 30, MinTarget: 10,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackHabitCompletions,
			Milestones: defaultMilestones, Priority: 1,
		},
		{
			ID: "habits_breadth", Category: domain.CategoryHabits,
			Title:          "Touch a wider spread of habits",
			BaselineMetric: domain.MetricUniqueHabitsPerDay, FallbackTarget: 5, MinTarget: 3,
			MinLevel: 2, Quality: solid, TrackingKey: TrackUniqueHabits,
			Milestones: defaultMilestones, Priority: 2,
		},
		{
			ID: "habits_daily_rhythm", Category: domain.CategoryHabits,
			Title:          "Show up for your habits most days",
			BaselineMetric: domain.MetricActiveDays, FallbackTarget: 12, MinTarget: 8,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackHabitDays,
			WeeklyTarget: true, Milestones: defaultMilestones, Priority: 3,
		},
		{
			ID: "habits_power_month", Category: domain.CategoryHabits,
			Title:          "A heavy habit month",
			BaselineMetric: domain.MetricHabitsTotal, FallbackTarget: 60, MinTarget: 40,
			MinLevel: 4, Quality: full, TrackingKey: TrackHabitCompletions,
			Milestones: defaultMilestones, Priority: 4,
		},

		// ── Journal ────────────────────────────────────────────────────
		{
			ID: "journal_monthly_entries", Category: domain.CategoryJournal,
			Title:          "Write more entries than your monthly average",
			BaselineMetric: domain.MetricJournalTotal, FallbackTarget: 15, MinTarget: 8,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackJournalEntries,
			Milestones: defaultMilestones, Priority: 1,
		},
		{
			ID: "journal_depth", Category: domain.CategoryJournal,
			Title:          "Write longer, deeper entries",
			BaselineMetric: domain.MetricJournalCharsPerDay, FallbackTarget: 500, MinTarget: 200,
			MinLevel: 2, Quality: solid, TrackingKey: TrackJournalChars,
			Milestones: defaultMilestones, Priority: 2,
		},
		{
			ID: "journal_daily_habit", Category: domain.CategoryJournal,
			Title:          "Journal on most days",
			BaselineMetric: domain.MetricActiveDays, FallbackTarget: 10, MinTarget: 6,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackJournalDays,
			WeeklyTarget: true, Milestones: defaultMilestones, Priority: 3,
		},
		{
			ID: "journal_marathon", Category: domain.CategoryJournal,
			Title:          "A marathon journaling month",
			BaselineMetric: domain.MetricJournalTotal, FallbackTarget: 40, MinTarget: 25,
			MinLevel: 4, Quality: full, TrackingKey: TrackJournalEntries,
			Milestones: defaultMilestones, Priority: 4,
		},

		// ── Goals ──────────────────────────────────────────────────────
		{
			ID: "goals_progress_events", Category: domain.CategoryGoals,
			Title:          "Log steady goal progress",
			BaselineMetric: domain.MetricGoalEventsTotal, FallbackTarget: 12, MinTarget: 6,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackGoalEvents,
			Milestones: defaultMilestones, Priority: 1,
		},
		{
			ID: "goals_completed_push", Category: domain.CategoryGoals,
			Title:          "Close out goals",
			BaselineMetric: domain.MetricGoalsCompleted, FallbackTarget: 2, MinTarget: 1,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackGoalsCompleted,
			Milestones: []float64{0.5}, Priority: 2,
		},
		{
			ID: "goals_weekly_cadence", Category: domain.CategoryGoals,
			Title:          "Touch your goals every week",
			BaselineMetric: domain.MetricGoalEventsTotal, FallbackTarget: 8, MinTarget: 4,
			MinLevel: 2, Quality: solid, TrackingKey: TrackGoalEvents,
			WeeklyTarget: true, Milestones: defaultMilestones, Priority: 3,
		},
		{
			ID: "goals_finisher", Category: domain.CategoryGoals,
			Title:          "A finisher month",
			BaselineMetric: domain.MetricGoalsCompleted, FallbackTarget: 4, MinTarget: 2,
			MinLevel: 4, Quality: full, TrackingKey: TrackGoalsCompleted,
			Milestones: []float64{0.5}, Priority: 4,
		},

		// ── Consistency ────────────────────────────────────────────────
		{
			ID: "consistency_active_days", Category: domain.CategoryConsistency,
			Title:          "More active days than last month",
			BaselineMetric: domain.MetricActiveDays, FallbackTarget: 15, MinTarget: 10,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackActiveDays,
			Milestones: defaultMilestones, Priority: 1,
		},
		{
			ID: "consistency_streak_keeper", Category: domain.CategoryConsistency,
			Title:          "Keep the chain going",
			BaselineMetric: domain.MetricActiveDays, FallbackTarget: 20, MinTarget: 14,
			MinLevel: 2, Quality: solid, TrackingKey: TrackActiveDays,
			Milestones: defaultMilestones, Priority: 2,
		},
		{
			ID: "consistency_balanced_weeks", Category: domain.CategoryConsistency,
			Title:          "Stay active every single week",
			BaselineMetric: domain.MetricActiveDays, FallbackTarget: 16, MinTarget: 12,
			MinLevel: 3, Quality: solid, TrackingKey: TrackActiveDays,
			WeeklyTarget: true, Milestones: defaultMilestones, Priority: 3,
		},
		{
			ID: "consistency_perfect_month", Category: domain.CategoryConsistency,
			Title:          "A near-perfect month",
			BaselineMetric: domain.MetricActiveDays, FallbackTarget: 26, MinTarget: 20,
			MinLevel: 4, Quality: full, TrackingKey: TrackActiveDays,
			Milestones: defaultMilestones, Priority: 4,
		},

		// ── First-month special ────────────────────────────────────────
		{
			ID: FirstMonthTemplateID, Category: domain.CategoryHabits,
			Title:          "Find your footing",
			BaselineMetric: domain.MetricHabitsTotal, FallbackTarget: 20, MinTarget: 10,
			MinLevel: 1, Quality: anyQuality, TrackingKey: TrackHabitCompletions,
			Milestones: defaultMilestones, Priority: 0, FirstMonth: true,
		},
	}
}
