package sqlite

import (
	"database/sql"
	"encoding/json"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── Daily Activity ─────────────────────────────────────────────────────────

// UpsertDailyActivity inserts or replaces the counts for one calendar day.
func (d *DB) UpsertDailyActivity(rec domain.DailyActivityRecord) error {
	_, err := d.conn.Exec(
		`INSERT INTO daily_activity (day, habit_completions, unique_habits, journal_entries, journal_chars, goal_progress_events, goals_completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(day) DO UPDATE SET
			habit_completions=excluded.habit_completions,
			unique_habits=excluded.unique_habits,
			journal_entries=excluded.journal_entries,
			journal_chars=excluded.journal_chars,
			goal_progress_events=excluded.goal_progress_events,
			goals_completed=excluded.goals_completed`,
		rec.Day, rec.HabitCompletions, rec.UniqueHabits, rec.JournalEntries,
		rec.JournalChars, rec.GoalProgressEvents, rec.GoalsCompleted,
	)
	return err
}

// GetDailyActivity retrieves the record for one day, or nil if absent.
func (d *DB) GetDailyActivity(day string) (*domain.DailyActivityRecord, error) {
	row := d.conn.QueryRow(
		`SELECT day, habit_completions, unique_habits, journal_entries, journal_chars, goal_progress_events, goals_completed
		 FROM daily_activity WHERE day = ?`, day,
	)
	return scanActivity(row)
}

// ListDailyActivity returns records within [from, to] inclusive, ascending.
func (d *DB) ListDailyActivity(from, to string) ([]domain.DailyActivityRecord, error) {
	rows, err := d.conn.Query(
		`SELECT day, habit_completions, unique_habits, journal_entries, journal_chars, goal_progress_events, goals_completed
		 FROM daily_activity WHERE day >= ? AND day <= ? ORDER BY day ASC`, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []domain.DailyActivityRecord
	for rows.Next() {
		r, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, rows.Err()
}

func scanActivity(s scanner) (*domain.DailyActivityRecord, error) {
	var r domain.DailyActivityRecord
	err := s.Scan(&r.Day, &r.HabitCompletions, &r.UniqueHabits, &r.JournalEntries,
		&r.JournalChars, &r.GoalProgressEvents, &r.GoalsCompleted)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ─── Baseline Snapshots ─────────────────────────────────────────────────────

// SaveBaseline stores a baseline snapshot for a month. Snapshots are
// immutable; re-saving the same month replaces the whole payload.
func (d *DB) SaveBaseline(month string, b domain.UserActivityBaseline) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(
		`INSERT INTO baselines (month, payload, generated_at) VALUES (?, ?, ?)
		 ON CONFLICT(month) DO UPDATE SET payload=excluded.payload, generated_at=excluded.generated_at`,
		month, string(payload), b.GeneratedAt.Unix(),
	)
	return err
}

// GetBaseline retrieves the baseline for a month, or nil if absent.
func (d *DB) GetBaseline(month string) (*domain.UserActivityBaseline, error) {
	var payload string
	err := d.conn.QueryRow(`SELECT payload FROM baselines WHERE month = ?`, month).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var b domain.UserActivityBaseline
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// HasAnyBaseline reports whether any baseline has ever been generated.
func (d *DB) HasAnyBaseline() (bool, error) {
	var count int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM baselines`).Scan(&count)
	return count > 0, err
}
