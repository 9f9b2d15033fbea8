// Package streak implements the consistency streak calculator: chain
// walking over the daily activity log, freeze-instead-of-break semantics,
// warm-up debt, and lifetime milestone tiers.
package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/metrics"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// debtLookbackDays bounds the debt walk. Misses older than this are
// written off rather than accumulated forever.
const debtLookbackDays = 30

// historyLookbackDays bounds how far the chain walk reads the activity log.
const historyLookbackDays = 400

// Config holds the streak thresholds.
type Config struct {
	// CompletionThreshold is the journal entry count that makes a day
	// count as completed.
	CompletionThreshold int

	// TierThresholds are the daily entry counts for milestone tiers 1-3.
	// Ascending.
	TierThresholds [3]int
}

// DefaultConfig returns the production streak thresholds.
func DefaultConfig() Config {
	return Config{
		CompletionThreshold: 3,
		TierThresholds:      [3]int{4, 8, 13},
	}
}

// Calculator owns the singleton streak state.
type Calculator struct {
	db  *sqlite.DB
	cfg Config
	now func() time.Time
}

// NewCalculator creates a streak calculator.
func NewCalculator(db *sqlite.DB, cfg Config) *Calculator {
	return &Calculator{db: db, cfg: cfg, now: time.Now}
}

// State returns the persisted streak state without recomputing.
func (c *Calculator) State() (domain.StreakState, error) {
	return c.db.GetStreak()
}

// Refresh recomputes the streak from the activity log and persists the
// result. Safe to call any number of times per day; the outcome depends
// only on the log, the payments, and the persisted freeze bookkeeping.
//
// A missed day freezes the streak instead of breaking it: the length is
// pinned, and the next completed day resumes at the pre-freeze length
// plus one. Recovery records the missed day(s) as bridged on the state,
// so every later recomputation keeps the chain connected instead of
// collapsing it at the gap. LongestStreak only ever goes up.
func (c *Calculator) Refresh(ctx context.Context) (domain.StreakState, error) {
	now := c.now()
	today := now.Format(domain.DayFormat)

	prev, err := c.db.GetStreak()
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("get streak: %w", err)
	}

	cutoff := now.AddDate(0, 0, -historyLookbackDays)
	records, err := c.db.ListDailyActivity(cutoff.Format(domain.DayFormat), today)
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("list daily activity: %w", err)
	}
	payments, err := c.db.ListWarmUpPayments()
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("list warm-up payments: %w", err)
	}

	completed := make(map[string]bool, len(records))
	lastCompleted := ""
	for _, r := range records {
		if r.JournalEntries >= c.cfg.CompletionThreshold {
			completed[r.Day] = true
			if r.Day > lastCompleted {
				lastCompleted = r.Day
			}
		}
	}
	covered := make(map[string]bool, len(payments)+len(prev.BridgedDays))
	for _, p := range payments {
		if p.Complete {
			covered[p.MissedDay] = true
		}
	}
	for _, d := range prev.BridgedDays {
		covered[d] = true
	}

	walked, startDate := walk(completed, covered, now)

	next := prev
	next.UpdatedAt = now
	next.BridgedDays = pruneBridged(prev.BridgedDays, cutoff)
	sameDay := prev.UpdatedAt.Format(domain.DayFormat) == today

	// Uncovered days between the chain on record and the chain the walk
	// found. Non-empty means the two are disconnected and the streak
	// would collapse at the gap.
	gap := gapDays(prev.LastCompletedDate, startDate, completed, covered)
	broken := prev.CurrentStreak > 0 && len(gap) > 0 && len(gap) <= debtLookbackDays

	switch {
	case walked > 0 && (prev.IsFrozen || broken):
		// Recovery. Record the missed day(s) as bridged so every later
		// walk keeps the chain connected, then resume at the pre-freeze
		// length plus the completions since. The chain walk can exceed
		// that when warm-up debt was paid; take the larger.
		for _, d := range gap {
			covered[d] = true
			next.BridgedDays = append(next.BridgedDays, d)
		}
		if !prev.IsFrozen {
			// The miss never got a freeze tick; count its days now.
			next.FrozenDays = prev.FrozenDays + len(gap)
		}
		walked, startDate = walk(completed, covered, now)
		pinned := prev.CurrentStreak
		if prev.IsFrozen {
			pinned = prev.StreakBeforeFreeze
		}
		resumed := pinned
		if completed[today] || lastCompleted > prev.LastCompletedDate {
			resumed = pinned + 1
		}
		if walked > resumed {
			resumed = walked
		}
		next.CurrentStreak = resumed
		next.IsFrozen = false
		next.StreakBeforeFreeze = 0
		next.JustUnfrozeToday = true
		next.StreakStartDate = startDate
		if completed[today] {
			next.LastCompletedDate = today
		} else {
			next.LastCompletedDate = lastCompleted
		}

	case completed[today]:
		next.CurrentStreak = walked
		next.StreakStartDate = startDate
		next.LastCompletedDate = today
		if !sameDay {
			next.JustUnfrozeToday = false
		}

	case walked > 0:
		// Chain alive through yesterday; today is still open.
		next.CurrentStreak = walked
		next.StreakStartDate = startDate
		next.LastCompletedDate = lastCompleted
		if !sameDay {
			next.JustUnfrozeToday = false
		}

	case prev.CurrentStreak > 0 && !prev.IsFrozen:
		// A miss would break the chain: freeze it instead.
		next.IsFrozen = true
		next.StreakBeforeFreeze = prev.CurrentStreak
		next.FrozenDays = prev.FrozenDays + 1
		next.LastCompletedDate = lastCompleted
		next.JustUnfrozeToday = false

	case prev.IsFrozen:
		if !sameDay {
			next.FrozenDays = prev.FrozenDays + 1
		}

	default:
		next.CurrentStreak = 0
		next.StreakStartDate = ""
		next.LastCompletedDate = lastCompleted
		next.JustUnfrozeToday = false
	}

	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.TierCounts = c.tierCounts(records, prev.TierCounts)

	err = c.db.Transact(ctx, func(tx *sqlite.DB) error {
		return tx.PutStreak(next)
	})
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("put streak: %w", err)
	}

	metrics.CurrentStreak.Set(float64(next.CurrentStreak))
	metrics.LongestStreak.Set(float64(next.LongestStreak))
	return next, nil
}

// walk counts the chain ending at today (or yesterday when today is not yet
// completed). Covered days — paid warm-ups and freeze bridges — keep the
// chain connected but do not add to its length. Returns the length and the
// chain's start day.
func walk(completed, covered map[string]bool, now time.Time) (int, string) {
	d := now
	today := now.Format(domain.DayFormat)
	if !completed[today] {
		d = d.AddDate(0, 0, -1)
	}

	length := 0
	start := ""
	for i := 0; i < historyLookbackDays; i++ {
		key := d.Format(domain.DayFormat)
		if completed[key] {
			length++
			start = key
		} else if !covered[key] {
			break
		}
		d = d.AddDate(0, 0, -1)
	}
	return length, start
}

// gapDays returns the uncovered days strictly between the previous chain's
// last completed day and the current chain's start, oldest first.
func gapDays(lastCompleted, start string, completed, covered map[string]bool) []string {
	if lastCompleted == "" || start == "" || start <= lastCompleted {
		return nil
	}
	from, err := time.Parse(domain.DayFormat, lastCompleted)
	if err != nil {
		return nil
	}
	to, err := time.Parse(domain.DayFormat, start)
	if err != nil {
		return nil
	}

	var gap []string
	for d, i := from.AddDate(0, 0, 1), 0; d.Before(to) && i < historyLookbackDays; d, i = d.AddDate(0, 0, 1), i+1 {
		key := d.Format(domain.DayFormat)
		if !completed[key] && !covered[key] {
			gap = append(gap, key)
		}
	}
	return gap
}

// pruneBridged drops bridge entries that fell out of the walk lookback.
func pruneBridged(days []string, cutoff time.Time) []string {
	limit := cutoff.Format(domain.DayFormat)
	var kept []string
	for _, d := range days {
		if d >= limit {
			kept = append(kept, d)
		}
	}
	return kept
}

// tierCounts tallies lifetime milestone-tier days: a day counts toward the
// highest tier its entry count reaches. Monotonic against the stored counts
// so trimming old activity never shrinks them.
func (c *Calculator) tierCounts(records []domain.DailyActivityRecord, prev [3]int) [3]int {
	var counts [3]int
	for _, r := range records {
		for tier := len(c.cfg.TierThresholds) - 1; tier >= 0; tier-- {
			if r.JournalEntries >= c.cfg.TierThresholds[tier] {
				counts[tier]++
				break
			}
		}
	}
	for i := range counts {
		if prev[i] > counts[i] {
			counts[i] = prev[i]
		}
	}
	return counts
}

// Debt reports outstanding recovery obligations. A completed today zeroes
// the debt regardless of prior misses; otherwise consecutive uncovered days
// walking back from yesterday each owe one warm-up payment.
func (c *Calculator) Debt() (domain.DebtReport, error) {
	now := c.now()
	today := now.Format(domain.DayFormat)

	from := now.AddDate(0, 0, -debtLookbackDays).Format(domain.DayFormat)
	records, err := c.db.ListDailyActivity(from, today)
	if err != nil {
		return domain.DebtReport{}, fmt.Errorf("list daily activity: %w", err)
	}
	payments, err := c.db.ListWarmUpPayments()
	if err != nil {
		return domain.DebtReport{}, fmt.Errorf("list warm-up payments: %w", err)
	}

	completed := make(map[string]bool, len(records))
	for _, r := range records {
		if r.JournalEntries >= c.cfg.CompletionThreshold {
			completed[r.Day] = true
		}
	}
	// No chain in the window means nothing to recover: a new user, or
	// misses old enough to be written off.
	if completed[today] || len(completed) == 0 {
		return domain.DebtReport{}, nil
	}
	paid := make(map[string]bool, len(payments))
	for _, p := range payments {
		if p.Complete {
			paid[p.MissedDay] = true
		}
	}

	missed := 0
	d := now.AddDate(0, 0, -1)
	for i := 0; i < debtLookbackDays; i++ {
		key := d.Format(domain.DayFormat)
		if completed[key] || paid[key] {
			break
		}
		missed++
		d = d.AddDate(0, 0, -1)
	}

	return domain.DebtReport{
		MissedDays:      missed,
		RecoveryActions: missed * c.cfg.CompletionThreshold,
	}, nil
}

// PayWarmUp records a completed warm-up payment for a missed day and
// refreshes the streak so a repaired chain takes effect immediately.
// The day must be in the past.
func (c *Calculator) PayWarmUp(ctx context.Context, missedDay string) (domain.StreakState, error) {
	day, err := time.Parse(domain.DayFormat, missedDay)
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("parse day %q: %w", missedDay, err)
	}
	today := c.now().Format(domain.DayFormat)
	if day.Format(domain.DayFormat) >= today {
		return domain.StreakState{}, fmt.Errorf("%w: %s", domain.ErrFutureDay, missedDay)
	}

	err = c.db.Transact(ctx, func(tx *sqlite.DB) error {
		return tx.PutWarmUpPayment(domain.WarmUpPayment{
			MissedDay: day.Format(domain.DayFormat),
			PaidAt:    c.now(),
			Complete:  true,
		})
	})
	if err != nil {
		return domain.StreakState{}, fmt.Errorf("put warm-up payment: %w", err)
	}
	return c.Refresh(ctx)
}
