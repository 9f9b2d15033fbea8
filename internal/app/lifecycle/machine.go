// Package lifecycle implements the monthly challenge state machine: one
// live record per month moving through idle, active, preview, completion,
// and transition phases, with an error/recovery path and bounded retry.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/metrics"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// History bounds. Transitions and errors are audit logs, not unbounded
// growth surfaces.
const (
	transitionHistoryKeep = 50
	errorHistoryKeep      = 20
)

// validTransitions is the complete transition table. Any phase may
// additionally enter PhaseError; PhaseRecovery returns to the prior safe
// phase, which the table cannot express statically and Transition handles
// explicitly.
var validTransitions = map[domain.Phase][]domain.Phase{
	domain.PhaseIdle:          {domain.PhaseActive},
	domain.PhaseActive:        {domain.PhaseCompleted, domain.PhasePreview},
	domain.PhasePreview:       {domain.PhaseTransitioning},
	domain.PhaseCompleted:     {domain.PhaseTransitioning, domain.PhaseAwaitingMonth},
	domain.PhaseTransitioning: {domain.PhaseIdle, domain.PhaseActive},
	domain.PhaseAwaitingMonth: {domain.PhaseActive, domain.PhaseIdle},
	domain.PhaseError:         {domain.PhaseRecovery},
}

// RetryConfig bounds the recovery loop.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the production retry bounds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   10 * time.Second,
	}
}

// Machine drives the per-month lifecycle records.
type Machine struct {
	db    *sqlite.DB
	retry RetryConfig
	now   func() time.Time
	sleep func(time.Duration)
}

// NewMachine creates a lifecycle machine.
func NewMachine(db *sqlite.DB, retry RetryConfig) *Machine {
	return &Machine{db: db, retry: retry, now: time.Now, sleep: time.Sleep}
}

// Ensure returns the lifecycle record for a month, creating an idle one if
// none exists. Months older than the latest known month are closed: their
// records are readable but never re-entered.
func (m *Machine) Ensure(ctx context.Context, month string) (domain.LifecycleState, error) {
	state, err := m.db.GetLifecycle(month)
	if err != nil {
		return domain.LifecycleState{}, fmt.Errorf("get lifecycle: %w", err)
	}
	if state != nil {
		return *state, nil
	}

	latest, ok, err := m.db.LatestLifecycleMonth()
	if err != nil {
		return domain.LifecycleState{}, fmt.Errorf("latest lifecycle month: %w", err)
	}
	if ok && month < latest {
		return domain.LifecycleState{}, fmt.Errorf("%w: %s is before %s", domain.ErrMonthClosed, month, latest)
	}

	fresh := domain.LifecycleState{
		Month:           month,
		Phase:           domain.PhaseIdle,
		LastStateChange: m.now(),
	}
	err = m.db.Transact(ctx, func(tx *sqlite.DB) error {
		return tx.PutLifecycle(fresh)
	})
	if err != nil {
		return domain.LifecycleState{}, fmt.Errorf("put lifecycle: %w", err)
	}
	return fresh, nil
}

// Transition moves a month's lifecycle to a new phase. Invalid transitions
// are logged to the bounded error log and rejected. The state update, the
// history append, and the history trim commit atomically.
func (m *Machine) Transition(ctx context.Context, month string, to domain.Phase, reason string) (domain.LifecycleState, error) {
	state, err := m.db.GetLifecycle(month)
	if err != nil {
		return domain.LifecycleState{}, fmt.Errorf("get lifecycle: %w", err)
	}
	if state == nil {
		return domain.LifecycleState{}, fmt.Errorf("%w: %s", domain.ErrLifecycleNotFound, month)
	}

	if !m.allowed(*state, to) {
		msg := fmt.Sprintf("invalid transition %s -> %s", state.Phase, to)
		if logErr := m.RecordError(ctx, month, msg, reason); logErr != nil {
			log.Printf("[lifecycle] error log write failed: %v", logErr)
		}
		return *state, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, state.Phase, to)
	}

	from := state.Phase
	next := *state
	next.Phase = to
	next.LastStateChange = m.now()
	switch to {
	case domain.PhaseError:
		// Remember where to return to once recovery succeeds.
		next.PriorPhase = from
	case domain.PhaseRecovery:
		// PriorPhase carries through until recovery resolves.
	default:
		next.PriorPhase = ""
		next.RetryCount = 0
	}

	err = m.db.Transact(ctx, func(tx *sqlite.DB) error {
		if err := tx.PutLifecycle(next); err != nil {
			return fmt.Errorf("put lifecycle: %w", err)
		}
		if err := tx.AppendTransition(domain.LifecycleTransition{
			Month:  month,
			From:   from,
			To:     to,
			Reason: reason,
			At:     next.LastStateChange,
		}); err != nil {
			return fmt.Errorf("append transition: %w", err)
		}
		if _, err := tx.TrimTransitions(month, transitionHistoryKeep); err != nil {
			return fmt.Errorf("trim transitions: %w", err)
		}
		return nil
	})
	if err != nil {
		return *state, err
	}

	metrics.LifecycleTransitions.WithLabelValues(string(from), string(to)).Inc()
	log.Printf("[lifecycle] %s: %s -> %s (%s)", month, from, to, reason)
	return next, nil
}

// allowed reports whether the transition is legal from the current state.
func (m *Machine) allowed(state domain.LifecycleState, to domain.Phase) bool {
	if to == domain.PhaseError {
		return true
	}
	if state.Phase == domain.PhaseRecovery {
		// Recovery returns to the prior safe phase, or re-enters error.
		return to == state.PriorPhase || to == domain.PhaseError
	}
	for _, p := range validTransitions[state.Phase] {
		if p == to {
			return true
		}
	}
	return false
}

// SetChallenge records the month's current challenge id on the lifecycle.
func (m *Machine) SetChallenge(ctx context.Context, month, challengeID string) error {
	state, err := m.db.GetLifecycle(month)
	if err != nil {
		return fmt.Errorf("get lifecycle: %w", err)
	}
	if state == nil {
		return fmt.Errorf("%w: %s", domain.ErrLifecycleNotFound, month)
	}
	state.CurrentChallengeID = challengeID
	return m.db.Transact(ctx, func(tx *sqlite.DB) error {
		return tx.PutLifecycle(*state)
	})
}

// SetPreview records the upcoming month's preview challenge id.
func (m *Machine) SetPreview(ctx context.Context, month, challengeID string) error {
	state, err := m.db.GetLifecycle(month)
	if err != nil {
		return fmt.Errorf("get lifecycle: %w", err)
	}
	if state == nil {
		return fmt.Errorf("%w: %s", domain.ErrLifecycleNotFound, month)
	}
	state.PreviewChallengeID = challengeID
	return m.db.Transact(ctx, func(tx *sqlite.DB) error {
		return tx.PutLifecycle(*state)
	})
}

// RecordError appends to the month's bounded error log.
func (m *Machine) RecordError(ctx context.Context, month, message, detail string) error {
	err := m.db.Transact(ctx, func(tx *sqlite.DB) error {
		if _, err := tx.AppendLifecycleError(domain.LifecycleError{
			Month:   month,
			Message: message,
			Context: detail,
			At:      m.now(),
		}); err != nil {
			return fmt.Errorf("append lifecycle error: %w", err)
		}
		if _, err := tx.TrimLifecycleErrors(month, errorHistoryKeep); err != nil {
			return fmt.Errorf("trim lifecycle errors: %w", err)
		}
		return nil
	})
	if err == nil {
		metrics.LifecycleErrors.Inc()
	}
	return err
}

// Recover runs op with exponential backoff from the error phase. On success
// the month returns to its prior safe phase and open errors are resolved;
// when retries are exhausted the month stays in error and ErrRetryExhausted
// is returned.
func (m *Machine) Recover(ctx context.Context, month string, op func(context.Context) error) error {
	state, err := m.db.GetLifecycle(month)
	if err != nil {
		return fmt.Errorf("get lifecycle: %w", err)
	}
	if state == nil {
		return fmt.Errorf("%w: %s", domain.ErrLifecycleNotFound, month)
	}
	if state.Phase != domain.PhaseError {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, state.Phase, domain.PhaseRecovery)
	}

	prior := state.PriorPhase
	if _, err := m.Transition(ctx, month, domain.PhaseRecovery, "recovery started"); err != nil {
		return err
	}

	delay := m.retry.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= m.retry.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if err := m.resolveErrors(ctx, month); err != nil {
				log.Printf("[lifecycle] resolve errors failed: %v", err)
			}
			_, err := m.Transition(ctx, month, prior, fmt.Sprintf("recovered after %d attempt(s)", attempt))
			return err
		}

		if logErr := m.recordAttempt(ctx, month, lastErr, attempt); logErr != nil {
			log.Printf("[lifecycle] error log write failed: %v", logErr)
		}
		if attempt < m.retry.MaxRetries {
			m.sleep(delay)
			delay *= 2
			if delay > m.retry.MaxDelay {
				delay = m.retry.MaxDelay
			}
		}
	}

	// Exhausted. Re-enter error with the retry count preserved.
	if _, err := m.Transition(ctx, month, domain.PhaseError, "retries exhausted"); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		return err
	}
	if state, err := m.db.GetLifecycle(month); err == nil && state != nil {
		state.PriorPhase = prior
		state.RetryCount = m.retry.MaxRetries
		_ = m.db.Transact(ctx, func(tx *sqlite.DB) error { return tx.PutLifecycle(*state) })
	}
	return fmt.Errorf("%w after %d attempts: %v", domain.ErrRetryExhausted, m.retry.MaxRetries, lastErr)
}

func (m *Machine) recordAttempt(ctx context.Context, month string, opErr error, attempt int) error {
	err := m.db.Transact(ctx, func(tx *sqlite.DB) error {
		if _, err := tx.AppendLifecycleError(domain.LifecycleError{
			Month:   month,
			Message: opErr.Error(),
			Context: "recovery attempt",
			Attempt: attempt,
			At:      m.now(),
		}); err != nil {
			return err
		}
		_, err := tx.TrimLifecycleErrors(month, errorHistoryKeep)
		return err
	})
	if err == nil {
		metrics.LifecycleErrors.Inc()
	}
	return err
}

// resolveErrors marks the month's open error entries resolved.
func (m *Machine) resolveErrors(ctx context.Context, month string) error {
	entries, err := m.db.ListLifecycleErrors(month)
	if err != nil {
		return err
	}
	return m.db.Transact(ctx, func(tx *sqlite.DB) error {
		for _, e := range entries {
			if e.Resolved {
				continue
			}
			if err := tx.ResolveLifecycleError(e.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// History returns the month's transition log, oldest first.
func (m *Machine) History(month string) ([]domain.LifecycleTransition, error) {
	return m.db.ListTransitions(month)
}

// Errors returns the month's bounded error log, newest first.
func (m *Machine) Errors(month string) ([]domain.LifecycleError, error) {
	return m.db.ListLifecycleErrors(month)
}
