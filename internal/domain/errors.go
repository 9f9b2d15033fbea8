package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Category errors
	ErrUnknownCategory = errors.New("unknown progression category")

	// Template / generation errors
	ErrEmptyCatalog      = errors.New("no challenge templates configured for category")
	ErrChallengeNotFound = errors.New("monthly challenge not found")

	// Lifecycle errors
	ErrInvalidTransition = errors.New("invalid lifecycle transition")
	ErrLifecycleNotFound = errors.New("lifecycle record not found for month")
	ErrMonthClosed       = errors.New("lifecycle record for past month cannot be re-entered")
	ErrRetryExhausted    = errors.New("recovery retries exhausted")

	// Reward errors
	ErrDuplicateAward = errors.New("challenge has already been awarded XP")
	ErrNotCompleted   = errors.New("challenge is not completed — no XP to award")

	// Streak errors
	ErrFutureDay = errors.New("cannot record activity for a future day")
)
