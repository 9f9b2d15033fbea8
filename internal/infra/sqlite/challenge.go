package sqlite

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── Monthly Challenges ─────────────────────────────────────────────────────

// InsertChallenge creates a new monthly challenge record.
func (d *DB) InsertChallenge(c domain.MonthlyChallenge) error {
	reqs, err := json.Marshal(c.Requirements)
	if err != nil {
		return err
	}
	var baseline sql.NullString
	if c.Baseline != nil {
		raw, err := json.Marshal(c.Baseline)
		if err != nil {
			return err
		}
		baseline = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = d.conn.Exec(
		`INSERT INTO challenges (id, month, category, template_id, title, star_level, xp_reward, status, progress, target_method, requirements, baseline, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Month, string(c.Category), c.TemplateID, c.Title, c.StarLevel,
		c.XPReward, string(c.Status), c.Progress, string(c.TargetMethod),
		string(reqs), baseline, c.CreatedAt.Unix(), nullableUnix(unixOrZero(c.CompletedAt)),
	)
	return err
}

// GetChallenge retrieves a challenge by id, or nil if absent.
func (d *DB) GetChallenge(id string) (*domain.MonthlyChallenge, error) {
	row := d.conn.QueryRow(challengeSelect+` WHERE id = ?`, id)
	return scanChallenge(row)
}

// ChallengeForMonth returns the month's challenge regardless of status, or
// nil. This is the check-then-act read that makes generation idempotent: a
// completed challenge still claims its month.
func (d *DB) ChallengeForMonth(month string) (*domain.MonthlyChallenge, error) {
	row := d.conn.QueryRow(
		challengeSelect+` WHERE month = ? ORDER BY created_at DESC LIMIT 1`,
		month,
	)
	return scanChallenge(row)
}

// UpdateChallenge persists status, progress, requirements, and completion
// time. Identity fields and the frozen baseline are never rewritten.
func (d *DB) UpdateChallenge(c domain.MonthlyChallenge) error {
	reqs, err := json.Marshal(c.Requirements)
	if err != nil {
		return err
	}
	result, err := d.conn.Exec(
		`UPDATE challenges SET status = ?, progress = ?, requirements = ?, completed_at = ?
		 WHERE id = ?`,
		string(c.Status), c.Progress, string(reqs),
		nullableUnix(unixOrZero(c.CompletedAt)), c.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrChallengeNotFound
	}
	return nil
}

// RecentTemplateIDs returns the template ids of the most recent challenges,
// newest first. Used to avoid repeating templates.
func (d *DB) RecentTemplateIDs(limit int) ([]string, error) {
	rows, err := d.conn.Query(
		`SELECT template_id FROM challenges ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastChallengeCategory returns the category of the most recent challenge.
// The second return is false when no challenge exists yet.
func (d *DB) LastChallengeCategory() (domain.Category, bool, error) {
	var cat string
	err := d.conn.QueryRow(
		`SELECT category FROM challenges ORDER BY created_at DESC LIMIT 1`,
	).Scan(&cat)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return domain.Category(cat), true, nil
}

// ─── Scanners ───────────────────────────────────────────────────────────────

const challengeSelect = `SELECT id, month, category, template_id, title, star_level, xp_reward, status, progress, target_method, requirements, baseline, created_at, completed_at FROM challenges`

func scanChallenge(s scanner) (*domain.MonthlyChallenge, error) {
	var c domain.MonthlyChallenge
	var reqs string
	var baseline sql.NullString
	var createdAt int64
	var completedAt sql.NullInt64

	err := s.Scan(&c.ID, &c.Month, &c.Category, &c.TemplateID, &c.Title,
		&c.StarLevel, &c.XPReward, &c.Status, &c.Progress, &c.TargetMethod,
		&reqs, &baseline, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(reqs), &c.Requirements); err != nil {
		return nil, err
	}
	if baseline.Valid {
		var b domain.UserActivityBaseline
		if err := json.Unmarshal([]byte(baseline.String), &b); err != nil {
			return nil, err
		}
		c.Baseline = &b
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	if completedAt.Valid {
		c.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	return &c, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
