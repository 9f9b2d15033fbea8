package domain

import "time"

// ─── Activity Baseline Types ────────────────────────────────────────────────

// DayFormat is the canonical calendar-day key used across the engine.
const DayFormat = "2006-01-02"

// MonthFormat is the canonical month key used for challenges and lifecycle
// records.
const MonthFormat = "2006-01"

// DailyActivityRecord is the per-day input supplied by upstream features.
// Read-only to this engine: only counts, never full domain records.
type DailyActivityRecord struct {
	Day                string `json:"day"` // DayFormat
	HabitCompletions   int    `json:"habit_completions"`
	UniqueHabits       int    `json:"unique_habits"`
	JournalEntries     int    `json:"journal_entries"`
	JournalChars       int    `json:"journal_chars"` // Summed entry lengths
	GoalProgressEvents int    `json:"goal_progress_events"`
	GoalsCompleted     int    `json:"goals_completed"`
}

// Active reports whether any tracked feature saw activity on this day.
func (r DailyActivityRecord) Active() bool {
	return r.HabitCompletions > 0 || r.JournalEntries > 0 || r.GoalProgressEvents > 0
}

// DataQuality grades how much signal a baseline window carries.
type DataQuality string

const (
	QualityMinimal  DataQuality = "minimal"  // <5 active days
	QualityPartial  DataQuality = "partial"  // 5–19 active days
	QualityComplete DataQuality = "complete" // ≥20 active days
)

// Baseline metric keys. Challenge templates declare which metric they scale.
const (
	MetricHabitsPerDay       = "habits_per_day"
	MetricUniqueHabitsPerDay = "unique_habits_per_day"
	MetricJournalPerDay      = "journal_entries_per_day"
	MetricJournalCharsPerDay = "journal_chars_per_day"
	MetricGoalEventsPerDay   = "goal_events_per_day"
	MetricGoalsCompleted     = "goals_completed"
	MetricActiveDays         = "active_days"
	MetricHabitsTotal        = "total_habit_completions"
	MetricJournalTotal       = "total_journal_entries"
	MetricGoalEventsTotal    = "total_goal_events"
)

// UserActivityBaseline is an immutable statistical snapshot of recent
// activity. Regenerated per cycle, never mutated in place. Averages divide
// by the window length, not by active days — inactive days count as zero.
type UserActivityBaseline struct {
	WindowStart string `json:"window_start"` // DayFormat
	WindowEnd   string `json:"window_end"`   // DayFormat, inclusive
	WindowDays  int    `json:"window_days"`

	TotalHabitCompletions int `json:"total_habit_completions"`
	TotalJournalEntries   int `json:"total_journal_entries"`
	TotalJournalChars     int `json:"total_journal_chars"`
	TotalGoalEvents       int `json:"total_goal_events"`
	TotalGoalsCompleted   int `json:"total_goals_completed"`

	AvgHabitsPerDay       float64 `json:"avg_habits_per_day"`
	AvgUniqueHabitsPerDay float64 `json:"avg_unique_habits_per_day"`
	AvgJournalPerDay      float64 `json:"avg_journal_per_day"`
	AvgJournalCharsPerDay float64 `json:"avg_journal_chars_per_day"`
	AvgGoalEventsPerDay   float64 `json:"avg_goal_events_per_day"`

	HabitActiveDays   int `json:"habit_active_days"`
	JournalActiveDays int `json:"journal_active_days"`
	GoalActiveDays    int `json:"goal_active_days"`
	ActiveDays        int `json:"active_days"` // Days with any activity

	DataQuality  DataQuality `json:"data_quality"`
	IsFirstMonth bool        `json:"is_first_month"`
	BalanceScore float64     `json:"balance_score"` // [0,1], evenness across features

	GeneratedAt time.Time `json:"generated_at"`
}

// Metric returns the named baseline metric, or (0, false) for unknown keys.
func (b UserActivityBaseline) Metric(key string) (float64, bool) {
	switch key {
	case MetricHabitsPerDay:
		return b.AvgHabitsPerDay, true
	case MetricUniqueHabitsPerDay:
		return b.AvgUniqueHabitsPerDay, true
	case MetricJournalPerDay:
		return b.AvgJournalPerDay, true
	case MetricJournalCharsPerDay:
		return b.AvgJournalCharsPerDay, true
	case MetricGoalEventsPerDay:
		return b.AvgGoalEventsPerDay, true
	case MetricGoalsCompleted:
		return float64(b.TotalGoalsCompleted), true
	case MetricActiveDays:
		return float64(b.ActiveDays), true
	case MetricHabitsTotal:
		return float64(b.TotalHabitCompletions), true
	case MetricJournalTotal:
		return float64(b.TotalJournalEntries), true
	case MetricGoalEventsTotal:
		return float64(b.TotalGoalEvents), true
	}
	return 0, false
}

// CategoryShare returns the fraction of active days this category contributed
// to the window. Used by category-selection weighting.
func (b UserActivityBaseline) CategoryShare(c Category) float64 {
	if b.WindowDays <= 0 {
		return 0
	}
	var days int
	switch c {
	case CategoryHabits:
		days = b.HabitActiveDays
	case CategoryJournal:
		days = b.JournalActiveDays
	case CategoryGoals:
		days = b.GoalActiveDays
	case CategoryConsistency:
		days = b.ActiveDays
	}
	return float64(days) / float64(b.WindowDays)
}
