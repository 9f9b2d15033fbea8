package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// Tracker recomputes challenge progress from month-to-date activity.
// Progress is always derived from the activity log, never incremented in
// place, so replays and backfills converge on the same state.
type Tracker struct {
	db  *sqlite.DB
	now func() time.Time
}

// NewTracker creates a progress tracker.
func NewTracker(db *sqlite.DB) *Tracker {
	return &Tracker{db: db, now: time.Now}
}

// Milestone is a progress threshold crossed during a sync.
type Milestone struct {
	ChallengeID string
	Fraction    float64
	Progress    float64
}

// Sync recomputes the active challenge's requirements for the month and
// persists the result. Returns the updated challenge and any milestones
// newly crossed. A month with no active challenge is a no-op.
func (t *Tracker) Sync(ctx context.Context, month string) (*domain.MonthlyChallenge, []Milestone, error) {
	ch, err := t.db.ChallengeForMonth(month)
	if err != nil {
		return nil, nil, fmt.Errorf("load challenge: %w", err)
	}
	if ch == nil {
		return nil, nil, nil
	}

	now := t.now()
	records, err := t.monthRecords(month, now)
	if err != nil {
		return nil, nil, err
	}

	var fired []Milestone
	for i := range ch.Requirements {
		req := &ch.Requirements[i]
		switch req.Type {
		case domain.RequirementWeekly:
			req.Current = tally(currentWeek(records, now), req.TrackingKey)
		default:
			req.Current = tally(records, req.TrackingKey)
		}

		pct := req.Pct()
		for j, frac := range req.Milestones {
			if j < len(req.MilestonesFired) && !req.MilestonesFired[j] && pct >= frac*100 {
				req.MilestonesFired[j] = true
				fired = append(fired, Milestone{ChallengeID: ch.ID, Fraction: frac, Progress: pct})
			}
		}
	}

	ch.Progress = ch.CompletionPct()
	if ch.Status == domain.ChallengeActive && ch.AllRequirementsMet() {
		ch.Status = domain.ChallengeCompleted
		ch.CompletedAt = now
	}

	err = t.db.Transact(ctx, func(tx *sqlite.DB) error {
		return tx.UpdateChallenge(*ch)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("update challenge: %w", err)
	}
	return ch, fired, nil
}

// monthRecords loads the month's activity from day 1 through today, clamped
// to the month's end when syncing a past month.
func (t *Tracker) monthRecords(month string, now time.Time) ([]domain.DailyActivityRecord, error) {
	first, err := time.Parse(domain.MonthFormat, month)
	if err != nil {
		return nil, fmt.Errorf("parse month %q: %w", month, err)
	}
	last := first.AddDate(0, 1, -1)

	to := now
	if to.After(last) {
		to = last
	}
	records, err := t.db.ListDailyActivity(first.Format(domain.DayFormat), to.Format(domain.DayFormat))
	if err != nil {
		return nil, fmt.Errorf("list daily activity: %w", err)
	}
	return records, nil
}

// currentWeek filters records to the calendar week-of-month containing now:
// days 1–7, 8–14, 15–21, 22–28, 29+.
func currentWeek(records []domain.DailyActivityRecord, now time.Time) []domain.DailyActivityRecord {
	week := (now.Day() - 1) / 7
	var out []domain.DailyActivityRecord
	for _, r := range records {
		d, err := time.Parse(domain.DayFormat, r.Day)
		if err != nil {
			continue
		}
		if (d.Day()-1)/7 == week {
			out = append(out, r)
		}
	}
	return out
}

// tally reduces activity records to the value of one tracking key.
func tally(records []domain.DailyActivityRecord, key string) int {
	var n int
	for _, r := range records {
		switch key {
		case TrackHabitCompletions:
			n += r.HabitCompletions
		case TrackUniqueHabits:
			if r.UniqueHabits > n {
				n = r.UniqueHabits
			}
		case TrackHabitDays:
			if r.HabitCompletions > 0 {
				n++
			}
		case TrackJournalEntries:
			n += r.JournalEntries
		case TrackJournalChars:
			// Deepest single day; targets for this key are per-day scale.
			if r.JournalChars > n {
				n = r.JournalChars
			}
		case TrackJournalDays:
			if r.JournalEntries > 0 {
				n++
			}
		case TrackGoalEvents:
			n += r.GoalProgressEvents
		case TrackGoalsCompleted:
			n += r.GoalsCompleted
		case TrackActiveDays:
			if r.Active() {
				n++
			}
		}
	}
	return n
}
