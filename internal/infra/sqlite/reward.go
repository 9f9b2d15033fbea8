package sqlite

import (
	"database/sql"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── XP Ledger ──────────────────────────────────────────────────────────────
// Append-only: rows are inserted with a running balance and never updated.

// AppendXP appends one ledger entry and returns its id.
func (d *DB) AppendXP(e domain.XPEntry) (int64, error) {
	result, err := d.conn.Exec(
		`INSERT INTO xp_ledger (ts, challenge_id, category, amount, balance, description)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Timestamp.Unix(), e.ChallengeID, string(e.Category), e.Amount, e.Balance, e.Description,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// XPBalance returns the lifetime XP balance (0 for an empty ledger).
func (d *DB) XPBalance() (int, error) {
	var balance sql.NullInt64
	err := d.conn.QueryRow(
		`SELECT balance FROM xp_ledger ORDER BY id DESC LIMIT 1`,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(balance.Int64), nil
}

// HasXPForChallenge reports whether a challenge has already been awarded.
func (d *DB) HasXPForChallenge(challengeID string) (bool, error) {
	var count int
	err := d.conn.QueryRow(
		`SELECT COUNT(*) FROM xp_ledger WHERE challenge_id = ?`, challengeID,
	).Scan(&count)
	return count > 0, err
}

// ListXP returns the most recent ledger entries, newest first.
func (d *DB) ListXP(limit int) ([]domain.XPEntry, error) {
	rows, err := d.conn.Query(
		`SELECT id, ts, challenge_id, category, amount, balance, description
		 FROM xp_ledger ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.XPEntry
	for rows.Next() {
		var e domain.XPEntry
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.ChallengeID, &e.Category, &e.Amount, &e.Balance, &e.Description); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
