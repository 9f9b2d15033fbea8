package domain

import "time"

// ─── Challenge Types ────────────────────────────────────────────────────────

// ChallengeStatus is the lifecycle status of a monthly challenge.
type ChallengeStatus string

const (
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	ChallengeFailed    ChallengeStatus = "failed"
	ChallengeExpired   ChallengeStatus = "expired"
)

// TargetMethod reports how a challenge target was derived, for observability.
type TargetMethod string

const (
	MethodBaseline TargetMethod = "baseline" // Scaled from a baseline metric
	MethodFallback TargetMethod = "fallback" // Metric missing — template constant used
	MethodMinimum  TargetMethod = "minimum"  // Declared minimum clamp was binding
)

// RequirementType categorizes a challenge requirement.
type RequirementType string

const (
	RequirementTotal  RequirementType = "total"  // Cumulative count over the month
	RequirementWeekly RequirementType = "weekly" // Per-week sub-target
)

// ChallengeTemplate is one entry of the static catalog. Immutable at runtime.
type ChallengeTemplate struct {
	ID             string          `json:"id"`
	Category       Category        `json:"category"`
	Title          string          `json:"title"`
	BaselineMetric string          `json:"baseline_metric"`
	FallbackTarget int             `json:"fallback_target"` // Used when the metric is missing/non-positive
	MinTarget      int             `json:"min_target"`      // Declared minimum clamp
	MinLevel       int             `json:"min_level"`       // Smallest star level this template suits
	Quality        []DataQuality   `json:"quality"`         // Preferred data-quality tiers
	TrackingKey    string          `json:"tracking_key"`
	WeeklyTarget   bool            `json:"weekly_target"` // Emit a weekly sub-requirement
	Milestones     []float64       `json:"milestones"`    // Progress fractions, ascending
	Priority       int             `json:"priority"`      // Catalog tie-break, lower wins
	FirstMonth     bool            `json:"first_month"`   // Tagged first_month_special
}

// ChallengeRequirement tracks one target inside a monthly challenge.
type ChallengeRequirement struct {
	Type            RequirementType `json:"type"`
	TrackingKey     string          `json:"tracking_key"`
	Target          int             `json:"target"`
	Current         int             `json:"current"`
	Milestones      []float64       `json:"milestones"`
	MilestonesFired []bool          `json:"milestones_fired"`
}

// Pct returns requirement completion as 0–100, capped.
func (r ChallengeRequirement) Pct() float64 {
	if r.Target <= 0 {
		return 100
	}
	pct := float64(r.Current) / float64(r.Target) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Met reports whether the requirement target has been reached.
func (r ChallengeRequirement) Met() bool {
	return r.Current >= r.Target
}

// MonthlyChallenge is the generated challenge for one month. Created by the
// generator, mutated only by progress tracking and lifecycle transitions.
// The embedded baseline snapshot is frozen at generation time and never
// re-derived.
type MonthlyChallenge struct {
	ID           string                 `json:"id"`
	Month        string                 `json:"month"` // MonthFormat
	Category     Category               `json:"category"`
	TemplateID   string                 `json:"template_id"`
	Title        string                 `json:"title"`
	StarLevel    int                    `json:"star_level"`
	XPReward     int                    `json:"xp_reward"`
	Status       ChallengeStatus        `json:"status"`
	Progress     float64                `json:"progress"` // 0–100
	TargetMethod TargetMethod           `json:"target_method"`
	Requirements []ChallengeRequirement `json:"requirements"`
	Baseline     *UserActivityBaseline  `json:"baseline,omitempty"` // Frozen snapshot
	CreatedAt    time.Time              `json:"created_at"`
	CompletedAt  time.Time              `json:"completed_at,omitzero"`
}

// CompletionPct returns overall progress as the mean of requirement
// percentages.
func (c MonthlyChallenge) CompletionPct() float64 {
	if len(c.Requirements) == 0 {
		return 0
	}
	var sum float64
	for _, r := range c.Requirements {
		sum += r.Pct()
	}
	return sum / float64(len(c.Requirements))
}

// AllRequirementsMet reports whether every requirement target is reached.
func (c MonthlyChallenge) AllRequirementsMet() bool {
	for _, r := range c.Requirements {
		if !r.Met() {
			return false
		}
	}
	return len(c.Requirements) > 0
}

// GenerationResult is the structured outcome of a generate operation.
// Soft conditions (already exists, fallback difficulty) surface as warnings,
// not errors.
type GenerationResult struct {
	Success   bool              `json:"success"`
	Challenge *MonthlyChallenge `json:"challenge,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
	Elapsed   time.Duration     `json:"elapsed"`
}

// ValidationResult is the pre-generation signal check. The caller decides
// whether to proceed with a fallback challenge when invalid.
type ValidationResult struct {
	IsValid        bool     `json:"is_valid"`
	MissingMetrics []string `json:"missing_metrics,omitempty"`
	Advisory       string   `json:"advisory,omitempty"`
}
