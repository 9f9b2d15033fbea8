// Package progression wires the aggregator, ratings, challenge generation,
// lifecycle, streaks, and rewards into one engine. The engine is the only
// entry point the API and CLI layers talk to.
package progression

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/habitloop/habitloop/internal/app/baseline"
	"github.com/habitloop/habitloop/internal/app/challenge"
	"github.com/habitloop/habitloop/internal/app/lifecycle"
	"github.com/habitloop/habitloop/internal/app/rating"
	"github.com/habitloop/habitloop/internal/app/reward"
	"github.com/habitloop/habitloop/internal/app/streak"
	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/cache"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// Config bundles the engine's tunables.
type Config struct {
	WindowDays int
	CacheTTL   time.Duration
	Rating     rating.Config
	Streak     streak.Config
	Retry      lifecycle.RetryConfig
}

// DefaultConfig returns the production engine configuration.
func DefaultConfig() Config {
	return Config{
		WindowDays: baseline.DefaultWindowDays,
		CacheTTL:   5 * time.Minute,
		Rating:     rating.DefaultConfig(),
		Streak:     streak.DefaultConfig(),
		Retry:      lifecycle.DefaultRetryConfig(),
	}
}

// Engine composes the progression services over one database.
type Engine struct {
	db        *sqlite.DB
	Baselines *baseline.Aggregator
	Ratings   *rating.Service
	Generator *challenge.Generator
	Tracker   *challenge.Tracker
	Lifecycle *lifecycle.Machine
	Streaks   *streak.Calculator
	Rewards   *reward.Service
	now       func() time.Time
}

// New creates an engine over an open database.
func New(db *sqlite.DB, cfg Config) *Engine {
	agg := baseline.NewAggregator(db, cache.New(cfg.CacheTTL), cfg.WindowDays)
	return &Engine{
		db:        db,
		Baselines: agg,
		Ratings:   rating.NewService(db, cfg.Rating),
		Generator: challenge.NewGenerator(db, agg, cfg.Rating),
		Tracker:   challenge.NewTracker(db),
		Lifecycle: lifecycle.NewMachine(db, cfg.Retry),
		Streaks:   streak.NewCalculator(db, cfg.Streak),
		Rewards:   reward.NewService(db),
		now:       time.Now,
	}
}

// RecordActivity ingests one day of upstream counts, then refreshes
// everything derived from it: challenge progress for the day's month and
// the consistency streak.
func (e *Engine) RecordActivity(ctx context.Context, rec domain.DailyActivityRecord) error {
	if err := e.Baselines.RecordActivity(rec); err != nil {
		return err
	}

	day, err := time.Parse(domain.DayFormat, rec.Day)
	if err != nil {
		return fmt.Errorf("parse day %q: %w", rec.Day, err)
	}
	if _, _, err := e.Tracker.Sync(ctx, day.Format(domain.MonthFormat)); err != nil {
		return fmt.Errorf("sync challenge progress: %w", err)
	}
	if _, err := e.Streaks.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh streak: %w", err)
	}
	return nil
}

// StartMonth ensures the month's lifecycle exists, generates its challenge,
// and activates. Idempotent: re-running on an already-active month returns
// the existing challenge untouched. A generation failure moves the month to
// the error phase with the failure logged.
func (e *Engine) StartMonth(ctx context.Context, month string) (domain.GenerationResult, error) {
	state, err := e.Lifecycle.Ensure(ctx, month)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	res, err := e.Generator.Generate(ctx, month)
	if err != nil {
		if recErr := e.Lifecycle.RecordError(ctx, month, err.Error(), "challenge generation"); recErr != nil {
			log.Printf("[progression] error log write failed: %v", recErr)
		}
		if _, trErr := e.Lifecycle.Transition(ctx, month, domain.PhaseError, "challenge generation failed"); trErr != nil {
			log.Printf("[progression] error transition failed: %v", trErr)
		}
		return domain.GenerationResult{}, err
	}

	if err := e.Lifecycle.SetChallenge(ctx, month, res.Challenge.ID); err != nil {
		return res, err
	}
	if state.Phase == domain.PhaseIdle || state.Phase == domain.PhaseAwaitingMonth || state.Phase == domain.PhaseTransitioning {
		if _, err := e.Lifecycle.Transition(ctx, month, domain.PhaseActive, "challenge generated"); err != nil {
			return res, err
		}
	}
	return res, nil
}

// CloseMonth finalizes the month: a last progress sync, the terminal
// challenge status, the rating update, and the XP award for a completed
// challenge. First-month challenges never move the ratings.
func (e *Engine) CloseMonth(ctx context.Context, month string) (*domain.MonthlyChallenge, error) {
	state, err := e.Lifecycle.Ensure(ctx, month)
	if err != nil {
		return nil, err
	}
	switch state.Phase {
	case domain.PhaseCompleted, domain.PhaseTransitioning, domain.PhaseAwaitingMonth:
		return nil, fmt.Errorf("%w: %s already closed", domain.ErrMonthClosed, month)
	}

	ch, _, err := e.Tracker.Sync(ctx, month)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("%w: no challenge for %s", domain.ErrChallengeNotFound, month)
	}

	// A month holding a pre-generated preview hands over first: the
	// recorded preview is promoted when the next month starts.
	if state.Phase == domain.PhasePreview {
		if _, err := e.Lifecycle.Transition(ctx, month, domain.PhaseTransitioning, "handing over to next month"); err != nil {
			return ch, err
		}
		if _, err := e.Lifecycle.Transition(ctx, month, domain.PhaseActive, "handover complete"); err != nil {
			return ch, err
		}
	}

	if ch.Status == domain.ChallengeActive {
		if ch.Progress == 0 {
			ch.Status = domain.ChallengeExpired
		} else {
			ch.Status = domain.ChallengeFailed
		}
		err = e.db.Transact(ctx, func(tx *sqlite.DB) error {
			return tx.UpdateChallenge(*ch)
		})
		if err != nil {
			return nil, fmt.Errorf("finalize challenge: %w", err)
		}
	}

	warmUp := ch.TemplateID == challenge.FirstMonthTemplateID
	if _, err := e.Ratings.Update(month, ch.Category, ch.CompletionPct(), warmUp); err != nil {
		return ch, fmt.Errorf("update rating: %w", err)
	}

	if ch.Status == domain.ChallengeCompleted {
		if _, err := e.Rewards.Award(ctx, *ch); err != nil {
			return ch, fmt.Errorf("award xp: %w", err)
		}
	}

	if _, err := e.Lifecycle.Transition(ctx, month, domain.PhaseCompleted, "month closed"); err != nil {
		return ch, err
	}
	if _, err := e.Lifecycle.Transition(ctx, month, domain.PhaseAwaitingMonth, "awaiting next month"); err != nil {
		return ch, err
	}
	return ch, nil
}

// PreviewNext generates the next month's challenge ahead of time, records it
// as the current month's preview, and moves an active month into the preview
// phase. The preview becomes active when the next month starts. Idempotent:
// re-running on an already-previewed month refreshes nothing but the record.
func (e *Engine) PreviewNext(ctx context.Context, month string) (domain.GenerationResult, error) {
	t, err := time.Parse(domain.MonthFormat, month)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("parse month %q: %w", month, err)
	}
	next := t.AddDate(0, 1, 0).Format(domain.MonthFormat)

	res, err := e.Generator.Generate(ctx, next)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	if err := e.Lifecycle.SetPreview(ctx, month, res.Challenge.ID); err != nil {
		return res, err
	}

	state, err := e.Lifecycle.Ensure(ctx, month)
	if err != nil {
		return res, err
	}
	if state.Phase == domain.PhaseActive {
		if _, err := e.Lifecycle.Transition(ctx, month, domain.PhasePreview, "next month pre-generated"); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Snapshot is the read-model the API and CLI render.
type Snapshot struct {
	Month     string                       `json:"month"`
	Lifecycle *domain.LifecycleState       `json:"lifecycle,omitempty"`
	Challenge *domain.MonthlyChallenge     `json:"challenge,omitempty"`
	Report    domain.RatingReport          `json:"report"`
	Streak    domain.StreakState           `json:"streak"`
	Debt      domain.DebtReport            `json:"debt"`
	Baseline  *domain.UserActivityBaseline `json:"baseline,omitempty"`
}

// Snapshot assembles the current month's full state.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	now := e.now()
	month := now.Format(domain.MonthFormat)
	snap := Snapshot{Month: month}

	state, err := e.db.GetLifecycle(month)
	if err != nil {
		return snap, fmt.Errorf("get lifecycle: %w", err)
	}
	snap.Lifecycle = state

	ch, err := e.db.ChallengeForMonth(month)
	if err != nil {
		return snap, fmt.Errorf("get challenge: %w", err)
	}
	snap.Challenge = ch

	report, err := e.Ratings.Report(now)
	if err != nil {
		return snap, err
	}
	snap.Report = report

	st, err := e.Streaks.State()
	if err != nil {
		return snap, fmt.Errorf("get streak: %w", err)
	}
	snap.Streak = st

	debt, err := e.Streaks.Debt()
	if err != nil {
		return snap, err
	}
	snap.Debt = debt

	b, err := e.Baselines.BaselineFor(now)
	if err != nil {
		return snap, err
	}
	snap.Baseline = &b

	return snap, nil
}
