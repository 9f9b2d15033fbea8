// Package sqlite provides SQLite-based persistent storage for HabitLoop.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// DB wraps a SQLite connection with WAL mode and migrations.
// All store interfaces in the domain package are implemented on DB, so a
// transaction-scoped DB can be passed anywhere a store is expected.
type DB struct {
	root *sql.DB
	conn dbtx
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{root: db, conn: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.root.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.root.Ping()
}

// Transact runs fn inside a transaction. Either every write in fn commits,
// or none does — previous state is left intact on failure. Cancellation is
// checked before the transaction begins so no partial writes are committed
// for an already-cancelled caller.
func (d *DB) Transact(ctx context.Context, fn func(tx *DB) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := d.root.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&DB{root: d.root, conn: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		// Daily activity log — per-day counts supplied by upstream features
		`CREATE TABLE IF NOT EXISTS daily_activity (
			day                  TEXT PRIMARY KEY,
			habit_completions    INTEGER NOT NULL DEFAULT 0,
			unique_habits        INTEGER NOT NULL DEFAULT 0,
			journal_entries      INTEGER NOT NULL DEFAULT 0,
			journal_chars        INTEGER NOT NULL DEFAULT 0,
			goal_progress_events INTEGER NOT NULL DEFAULT 0,
			goals_completed      INTEGER NOT NULL DEFAULT 0
		)`,

		// Baseline snapshots, one per month, immutable once written
		`CREATE TABLE IF NOT EXISTS baselines (
			month        TEXT PRIMARY KEY,
			payload      TEXT NOT NULL,
			generated_at INTEGER NOT NULL
		)`,

		// Per-category star ratings
		`CREATE TABLE IF NOT EXISTS ratings (
			category             TEXT PRIMARY KEY,
			rating               INTEGER NOT NULL,
			consecutive_failures INTEGER NOT NULL DEFAULT 0,
			updated_at           INTEGER NOT NULL
		)`,

		// Append-only rating change history (trimmed to 12 months)
		`CREATE TABLE IF NOT EXISTS rating_history (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			month          TEXT NOT NULL,
			category       TEXT NOT NULL,
			prev_rating    INTEGER NOT NULL,
			new_rating     INTEGER NOT NULL,
			completion_pct REAL NOT NULL,
			reason         TEXT NOT NULL,
			ts             INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rating_history_month ON rating_history(month)`,

		// Monthly challenges; requirements and the frozen baseline are JSON
		`CREATE TABLE IF NOT EXISTS challenges (
			id            TEXT PRIMARY KEY,
			month         TEXT NOT NULL,
			category      TEXT NOT NULL,
			template_id   TEXT NOT NULL,
			title         TEXT NOT NULL,
			star_level    INTEGER NOT NULL,
			xp_reward     INTEGER NOT NULL,
			status        TEXT NOT NULL,
			progress      REAL NOT NULL DEFAULT 0,
			target_method TEXT NOT NULL,
			requirements  TEXT NOT NULL,
			baseline      TEXT,
			created_at    INTEGER NOT NULL,
			completed_at  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_challenges_month ON challenges(month)`,

		// Lifecycle records, one live record per month
		`CREATE TABLE IF NOT EXISTS lifecycle (
			month              TEXT PRIMARY KEY,
			phase              TEXT NOT NULL,
			prior_phase        TEXT NOT NULL DEFAULT '',
			current_challenge  TEXT NOT NULL DEFAULT '',
			preview_challenge  TEXT NOT NULL DEFAULT '',
			retry_count        INTEGER NOT NULL DEFAULT 0,
			last_state_change  INTEGER NOT NULL
		)`,

		// Append-only lifecycle transition history
		`CREATE TABLE IF NOT EXISTS lifecycle_transitions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			month      TEXT NOT NULL,
			from_phase TEXT NOT NULL,
			to_phase   TEXT NOT NULL,
			reason     TEXT NOT NULL,
			at         INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transitions_month ON lifecycle_transitions(month)`,

		// Bounded lifecycle error log
		`CREATE TABLE IF NOT EXISTS lifecycle_errors (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			month    TEXT NOT NULL,
			message  TEXT NOT NULL,
			context  TEXT NOT NULL DEFAULT '',
			attempt  INTEGER NOT NULL DEFAULT 0,
			at       INTEGER NOT NULL,
			resolved BOOLEAN NOT NULL DEFAULT 0
		)`,

		// Key-value store for the singleton streak state
		`CREATE TABLE IF NOT EXISTS streak_state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Warm-up payments keyed by the missed day they cover
		`CREATE TABLE IF NOT EXISTS warmup_payments (
			missed_day TEXT PRIMARY KEY,
			paid_at    INTEGER NOT NULL,
			complete   BOOLEAN NOT NULL DEFAULT 0
		)`,

		// Append-only XP ledger — one award per completed challenge
		`CREATE TABLE IF NOT EXISTS xp_ledger (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			ts           INTEGER NOT NULL,
			challenge_id TEXT NOT NULL UNIQUE,
			category     TEXT NOT NULL,
			amount       INTEGER NOT NULL,
			balance      INTEGER NOT NULL,
			description  TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, m := range migrations {
		if _, err := d.conn.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullableUnix(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
