package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── Streak State ───────────────────────────────────────────────────────────
// The singleton streak state lives in a key-value table, one JSON payload
// under a fixed key.

const streakKey = "streak"

// GetStreak loads the singleton streak state. A fresh database yields the
// zero state.
func (d *DB) GetStreak() (domain.StreakState, error) {
	var s domain.StreakState

	var payload string
	err := d.conn.QueryRow(`SELECT value FROM streak_state WHERE key = ?`, streakKey).Scan(&payload)
	if err == sql.ErrNoRows {
		return s, nil
	}
	if err != nil {
		return s, err
	}

	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return s, err
	}
	return s, nil
}

// PutStreak persists the singleton streak state.
func (d *DB) PutStreak(s domain.StreakState) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = d.conn.Exec(
		`INSERT INTO streak_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		streakKey, string(payload),
	)
	return err
}

// ─── Warm-Up Payments ───────────────────────────────────────────────────────

// PutWarmUpPayment records a payment covering one missed day.
func (d *DB) PutWarmUpPayment(p domain.WarmUpPayment) error {
	_, err := d.conn.Exec(
		`INSERT INTO warmup_payments (missed_day, paid_at, complete) VALUES (?, ?, ?)
		 ON CONFLICT(missed_day) DO UPDATE SET paid_at=excluded.paid_at, complete=excluded.complete`,
		p.MissedDay, p.PaidAt.Unix(), p.Complete,
	)
	return err
}

// ListWarmUpPayments returns all payments, oldest missed day first.
func (d *DB) ListWarmUpPayments() ([]domain.WarmUpPayment, error) {
	rows, err := d.conn.Query(
		`SELECT missed_day, paid_at, complete FROM warmup_payments ORDER BY missed_day ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ps []domain.WarmUpPayment
	for rows.Next() {
		var p domain.WarmUpPayment
		var paidAt int64
		if err := rows.Scan(&p.MissedDay, &paidAt, &p.Complete); err != nil {
			return nil, err
		}
		p.PaidAt = time.Unix(paidAt, 0)
		ps = append(ps, p)
	}
	return ps, rows.Err()
}
