package sqlite

import (
	"database/sql"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── Lifecycle Records ──────────────────────────────────────────────────────

// GetLifecycle retrieves the lifecycle record for a month, or nil if absent.
func (d *DB) GetLifecycle(month string) (*domain.LifecycleState, error) {
	row := d.conn.QueryRow(
		`SELECT month, phase, prior_phase, current_challenge, preview_challenge, retry_count, last_state_change
		 FROM lifecycle WHERE month = ?`, month,
	)

	var s domain.LifecycleState
	var lastChange int64
	err := row.Scan(&s.Month, &s.Phase, &s.PriorPhase, &s.CurrentChallengeID,
		&s.PreviewChallengeID, &s.RetryCount, &lastChange)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.LastStateChange = time.Unix(lastChange, 0)
	return &s, nil
}

// PutLifecycle inserts or replaces the record for the state's month.
// The month primary key guarantees exactly one live record per month.
func (d *DB) PutLifecycle(s domain.LifecycleState) error {
	_, err := d.conn.Exec(
		`INSERT INTO lifecycle (month, phase, prior_phase, current_challenge, preview_challenge, retry_count, last_state_change)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(month) DO UPDATE SET
			phase=excluded.phase,
			prior_phase=excluded.prior_phase,
			current_challenge=excluded.current_challenge,
			preview_challenge=excluded.preview_challenge,
			retry_count=excluded.retry_count,
			last_state_change=excluded.last_state_change`,
		s.Month, string(s.Phase), string(s.PriorPhase), s.CurrentChallengeID,
		s.PreviewChallengeID, s.RetryCount, s.LastStateChange.Unix(),
	)
	return err
}

// LatestLifecycleMonth returns the most recent month with a lifecycle
// record. The second return is false for an empty table.
func (d *DB) LatestLifecycleMonth() (string, bool, error) {
	var month string
	err := d.conn.QueryRow(`SELECT month FROM lifecycle ORDER BY month DESC LIMIT 1`).Scan(&month)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return month, true, nil
}

// AppendTransition appends one entry to the transition history.
func (d *DB) AppendTransition(t domain.LifecycleTransition) error {
	_, err := d.conn.Exec(
		`INSERT INTO lifecycle_transitions (month, from_phase, to_phase, reason, at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.Month, string(t.From), string(t.To), t.Reason, t.At.Unix(),
	)
	return err
}

// ListTransitions returns the transition history for a month, oldest first.
func (d *DB) ListTransitions(month string) ([]domain.LifecycleTransition, error) {
	rows, err := d.conn.Query(
		`SELECT month, from_phase, to_phase, reason, at
		 FROM lifecycle_transitions WHERE month = ? ORDER BY id ASC`, month,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ts []domain.LifecycleTransition
	for rows.Next() {
		var t domain.LifecycleTransition
		var at int64
		if err := rows.Scan(&t.Month, &t.From, &t.To, &t.Reason, &at); err != nil {
			return nil, err
		}
		t.At = time.Unix(at, 0)
		ts = append(ts, t)
	}
	return ts, rows.Err()
}

// TrimTransitions keeps only the newest `keep` history entries for a month.
func (d *DB) TrimTransitions(month string, keep int) (int64, error) {
	result, err := d.conn.Exec(
		`DELETE FROM lifecycle_transitions WHERE month = ? AND id NOT IN (
			SELECT id FROM lifecycle_transitions WHERE month = ? ORDER BY id DESC LIMIT ?
		)`, month, month, keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// AppendLifecycleError logs one error entry and returns its id.
func (d *DB) AppendLifecycleError(e domain.LifecycleError) (int64, error) {
	result, err := d.conn.Exec(
		`INSERT INTO lifecycle_errors (month, message, context, attempt, at, resolved)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Month, e.Message, e.Context, e.Attempt, e.At.Unix(), e.Resolved,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ResolveLifecycleError marks an error entry as resolved.
func (d *DB) ResolveLifecycleError(id int64) error {
	_, err := d.conn.Exec(`UPDATE lifecycle_errors SET resolved = 1 WHERE id = ?`, id)
	return err
}

// ListLifecycleErrors returns error entries for a month, newest first.
func (d *DB) ListLifecycleErrors(month string) ([]domain.LifecycleError, error) {
	rows, err := d.conn.Query(
		`SELECT id, month, message, context, attempt, at, resolved
		 FROM lifecycle_errors WHERE month = ? ORDER BY id DESC`, month,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var es []domain.LifecycleError
	for rows.Next() {
		var e domain.LifecycleError
		var at int64
		if err := rows.Scan(&e.ID, &e.Month, &e.Message, &e.Context, &e.Attempt, &at, &e.Resolved); err != nil {
			return nil, err
		}
		e.At = time.Unix(at, 0)
		es = append(es, e)
	}
	return es, rows.Err()
}

// TrimLifecycleErrors keeps only the newest `keep` error entries for a month.
func (d *DB) TrimLifecycleErrors(month string, keep int) (int64, error) {
	result, err := d.conn.Exec(
		`DELETE FROM lifecycle_errors WHERE month = ? AND id NOT IN (
			SELECT id FROM lifecycle_errors WHERE month = ? ORDER BY id DESC LIMIT ?
		)`, month, month, keep,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
