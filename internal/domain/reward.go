package domain

import "time"

// ─── XP Ledger Types ────────────────────────────────────────────────────────

// XPEntry is one append-only ledger row. Each completed challenge awards XP
// exactly once; the running balance is carried on every entry.
type XPEntry struct {
	ID          int64     `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	ChallengeID string    `json:"challenge_id"`
	Category    Category  `json:"category"`
	Amount      int       `json:"amount"`
	Balance     int       `json:"balance"` // Lifetime XP after this entry
	Description string    `json:"description"`
}
