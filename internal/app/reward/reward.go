// Package reward maintains the append-only XP ledger. Every award carries
// the running balance, and a challenge can be awarded at most once.
package reward

import (
	"context"
	"fmt"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// Service owns XP awards.
type Service struct {
	db  *sqlite.DB
	now func() time.Time
}

// NewService creates a reward service.
func NewService(db *sqlite.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Award appends the XP entry for a completed challenge. Rejects challenges
// that are not completed and duplicate awards for the same challenge; the
// ledger's unique challenge constraint backstops the check under races.
func (s *Service) Award(ctx context.Context, ch domain.MonthlyChallenge) (domain.XPEntry, error) {
	if ch.Status != domain.ChallengeCompleted {
		return domain.XPEntry{}, fmt.Errorf("%w: challenge %s is %s", domain.ErrNotCompleted, ch.ID, ch.Status)
	}

	dup, err := s.db.HasXPForChallenge(ch.ID)
	if err != nil {
		return domain.XPEntry{}, fmt.Errorf("check ledger: %w", err)
	}
	if dup {
		return domain.XPEntry{}, fmt.Errorf("%w: challenge %s", domain.ErrDuplicateAward, ch.ID)
	}

	entry := domain.XPEntry{
		Timestamp:   s.now(),
		ChallengeID: ch.ID,
		Category:    ch.Category,
		Amount:      ch.XPReward,
		Description: fmt.Sprintf("completed %q (%s)", ch.Title, ch.Month),
	}

	err = s.db.Transact(ctx, func(tx *sqlite.DB) error {
		balance, err := tx.XPBalance()
		if err != nil {
			return fmt.Errorf("xp balance: %w", err)
		}
		entry.Balance = balance + entry.Amount
		id, err := tx.AppendXP(entry)
		if err != nil {
			return fmt.Errorf("append xp: %w", err)
		}
		entry.ID = id
		return nil
	})
	if err != nil {
		return domain.XPEntry{}, err
	}
	return entry, nil
}

// Lifetime returns the current XP balance.
func (s *Service) Lifetime() (int, error) {
	return s.db.XPBalance()
}

// History returns the most recent ledger entries, newest first.
func (s *Service) History(limit int) ([]domain.XPEntry, error) {
	return s.db.ListXP(limit)
}
