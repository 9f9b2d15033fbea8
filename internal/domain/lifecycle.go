package domain

import "time"

// ─── Lifecycle State Machine Types ──────────────────────────────────────────

// Phase is a state of the monthly challenge lifecycle.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseActive            Phase = "active"
	PhasePreview           Phase = "preview"
	PhaseCompleted         Phase = "completed"
	PhaseTransitioning     Phase = "transitioning"
	PhaseAwaitingMonth     Phase = "awaiting_month_start"
	PhaseError             Phase = "error"
	PhaseRecovery          Phase = "recovery"
)

// LifecycleState is the one live record per month. Past months are retained
// for audit and never re-entered.
type LifecycleState struct {
	Month              string    `json:"month"` // MonthFormat
	Phase              Phase     `json:"phase"`
	PriorPhase         Phase     `json:"prior_phase,omitempty"` // Safe state to return to after recovery
	CurrentChallengeID string    `json:"current_challenge_id,omitempty"`
	PreviewChallengeID string    `json:"preview_challenge_id,omitempty"`
	RetryCount         int       `json:"retry_count"`
	LastStateChange    time.Time `json:"last_state_change"`
}

// LifecycleTransition is one append-only history entry.
type LifecycleTransition struct {
	Month  string    `json:"month"`
	From   Phase     `json:"from"`
	To     Phase     `json:"to"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// LifecycleError is one bounded-log error entry.
type LifecycleError struct {
	ID       int64     `json:"id"`
	Month    string    `json:"month"`
	Message  string    `json:"message"`
	Context  string    `json:"context"`
	Attempt  int       `json:"attempt"`
	At       time.Time `json:"at"`
	Resolved bool      `json:"resolved"`
}
