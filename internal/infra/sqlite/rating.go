package sqlite

import (
	"database/sql"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── Star Ratings ───────────────────────────────────────────────────────────

// GetRating retrieves the star rating for a category. Categories with no
// stored record start at the minimum rating with a clean failure counter.
func (d *DB) GetRating(c domain.Category) (domain.CategoryStarRating, error) {
	row := d.conn.QueryRow(
		`SELECT rating, consecutive_failures, updated_at FROM ratings WHERE category = ?`,
		c.StorageKey(),
	)

	r := domain.CategoryStarRating{Category: c, Rating: domain.MinRating}
	var updatedAt int64
	err := row.Scan(&r.Rating, &r.ConsecutiveFailures, &updatedAt)
	if err == sql.ErrNoRows {
		return r, nil
	}
	if err != nil {
		return r, err
	}
	r.UpdatedAt = time.Unix(updatedAt, 0)
	return r, nil
}

// PutRating stores the star rating for a category.
func (d *DB) PutRating(r domain.CategoryStarRating) error {
	_, err := d.conn.Exec(
		`INSERT INTO ratings (category, rating, consecutive_failures, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(category) DO UPDATE SET
			rating=excluded.rating,
			consecutive_failures=excluded.consecutive_failures,
			updated_at=excluded.updated_at`,
		r.Category.StorageKey(), r.Rating, r.ConsecutiveFailures, r.UpdatedAt.Unix(),
	)
	return err
}

// AppendRatingEvent appends one change event to the rating history.
func (d *DB) AppendRatingEvent(e domain.RatingChangeEvent) error {
	_, err := d.conn.Exec(
		`INSERT INTO rating_history (month, category, prev_rating, new_rating, completion_pct, reason, ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Month, string(e.Category), e.PreviousRating, e.NewRating,
		e.CompletionPct, string(e.Reason), e.Timestamp.Unix(),
	)
	return err
}

// ListRatingEvents returns history entries for months >= sinceMonth,
// oldest first. Pass "" for the full retained history.
func (d *DB) ListRatingEvents(sinceMonth string) ([]domain.RatingChangeEvent, error) {
	rows, err := d.conn.Query(
		`SELECT month, category, prev_rating, new_rating, completion_pct, reason, ts
		 FROM rating_history WHERE month >= ? ORDER BY ts ASC`, sinceMonth,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.RatingChangeEvent
	for rows.Next() {
		var e domain.RatingChangeEvent
		var ts int64
		if err := rows.Scan(&e.Month, &e.Category, &e.PreviousRating, &e.NewRating,
			&e.CompletionPct, &e.Reason, &ts); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0)
		events = append(events, e)
	}
	return events, rows.Err()
}

// TrimRatingHistory deletes entries older than beforeMonth. Keeps the
// history bounded to the configured retention window.
func (d *DB) TrimRatingHistory(beforeMonth string) (int64, error) {
	result, err := d.conn.Exec(`DELETE FROM rating_history WHERE month < ?`, beforeMonth)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
