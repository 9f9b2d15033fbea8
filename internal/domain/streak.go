package domain

import "time"

// ─── Consistency Streak Types ───────────────────────────────────────────────

// StreakState is the singleton consistency streak record.
// LongestStreak is a monotonic watermark: it never decreases, across
// freezes and resets alike.
type StreakState struct {
	CurrentStreak     int       `json:"current_streak"`
	LongestStreak     int       `json:"longest_streak"`
	LastCompletedDate string    `json:"last_completed_date,omitempty"` // DayFormat
	StreakStartDate   string    `json:"streak_start_date,omitempty"`   // DayFormat
	FrozenDays        int       `json:"frozen_days"`
	IsFrozen          bool      `json:"is_frozen"`
	StreakBeforeFreeze int      `json:"streak_before_freeze"`
	JustUnfrozeToday  bool      `json:"just_unfroze_today"`
	// BridgedDays are freeze-covered days, recorded when a streak
	// recovers. They keep the chain connected in every later
	// recomputation — continuity only, never activity.
	BridgedDays []string  `json:"bridged_days,omitempty"` // DayFormat
	TierCounts  [3]int    `json:"tier_counts"`            // Lifetime milestone-tier day counts
	UpdatedAt   time.Time `json:"updated_at"`
}

// WarmUpPayment covers one missed day retroactively. A fully-paid record
// makes the missed day count as completed for streak continuity only — it
// never alters historical per-feature totals.
type WarmUpPayment struct {
	MissedDay string    `json:"missed_day"` // DayFormat
	PaidAt    time.Time `json:"paid_at"`
	Complete  bool      `json:"complete"`
}

// DebtReport describes outstanding recovery obligations. If today already
// meets its completion threshold, debt is zero regardless of prior misses.
type DebtReport struct {
	MissedDays      int `json:"missed_days"`
	RecoveryActions int `json:"recovery_actions"`
}
